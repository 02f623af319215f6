package config

// Xbox kernel addresses of the traced wait and event functions.
const (
	KeWaitForSingleObjectAddr      = 0x80022f5a
	KeWaitForSingleObjectRetAddr   = 0x800231f9
	KeWaitForSingleObjectRaiseAddr = 0x80022fe6

	KeWaitForMultipleObjectsAddr      = 0x80022c05
	KeWaitForMultipleObjectsRetAddr   = 0x80022d37
	KeWaitForMultipleObjectsRaiseAddr = 0x80022f57

	KeSetEventAddr = 0x80023baa
)

const (
	// DefaultDir is the per-user configuration directory.
	DefaultDir = ".waittrace"
	// ConfigFile is the configuration file name inside DefaultDir.
	ConfigFile = "config.yaml"
	// DefaultCommand is the console command the tracer is registered under.
	DefaultCommand = "waittrace"
	// DefaultPrompt is the interactive console prompt.
	DefaultPrompt = "(waittrace) "
	// DefaultHistoryFile is the readline history location.
	DefaultHistoryFile = "~/.waittrace/history"
)

// DefaultHooks returns the kernel wait/event hook table.
func DefaultHooks() []HookConfig {
	return []HookConfig{
		{
			Function: "KeWaitForSingleObject",
			Kind:     "wait",
			Entry:    KeWaitForSingleObjectAddr,
			Exits:    []Address{KeWaitForSingleObjectRetAddr, KeWaitForSingleObjectRaiseAddr},
			Args:     []uint32{4}, // Object
		},
		{
			Function: "KeWaitForMultipleObjects",
			Kind:     "wait",
			Entry:    KeWaitForMultipleObjectsAddr,
			Exits:    []Address{KeWaitForMultipleObjectsRetAddr, KeWaitForMultipleObjectsRaiseAddr},
			Args:     []uint32{8}, // Object array
		},
		{
			Function: "KeSetEvent",
			Kind:     "signal",
			Entry:    KeSetEventAddr,
			Args:     []uint32{4}, // Event
		},
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Console: ConsoleConfig{
			Command:     DefaultCommand,
			Prompt:      DefaultPrompt,
			HistoryFile: DefaultHistoryFile,
		},
		Hooks: DefaultHooks(),
	}
}
