// Package config provides configuration loading and management.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/waittrace/internal/hooks"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents ~/.waittrace/config.yaml.
type Config struct {
	Version string        `yaml:"version"`
	Logging LoggingConfig `yaml:"logging"`
	Console ConsoleConfig `yaml:"console"`
	Hooks   []HookConfig  `yaml:"hooks"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"WAITTRACE_LOG_LEVEL"`   // debug, info, warn, error
	Pretty bool   `yaml:"pretty" env:"WAITTRACE_LOG_PRETTY"` // Human-readable console output
}

// ConsoleConfig contains debug console settings.
type ConsoleConfig struct {
	Command     string `yaml:"command" env:"WAITTRACE_COMMAND"` // Command name the tracer is registered under
	Prompt      string `yaml:"prompt" env:"WAITTRACE_PROMPT"`
	HistoryFile string `yaml:"history_file,omitempty" env:"WAITTRACE_HISTORY_FILE"`
}

// HookConfig describes one traced guest function.
type HookConfig struct {
	Function string    `yaml:"function"`
	Kind     string    `yaml:"kind"` // wait, count, signal
	Entry    Address   `yaml:"entry"`
	Exits    []Address `yaml:"exits,omitempty"` // Return and raise paths (wait only)
	Args     []uint32  `yaml:"args,omitempty"`  // Stack offsets of 32-bit arguments
}

// Address is a guest virtual address. It is written as hex in YAML.
type Address uint64

// MarshalYAML implements yaml.Marshaler.
func (a Address) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!int",
		Value: fmt.Sprintf("%#x", uint64(a)),
	}, nil
}

// Spec converts the hook to its runtime form.
func (h HookConfig) Spec() hooks.Spec {
	exits := make([]uint64, len(h.Exits))
	for i, e := range h.Exits {
		exits[i] = uint64(e)
	}
	return hooks.Spec{
		Function:   h.Function,
		Kind:       hooks.Kind(h.Kind),
		Entry:      uint64(h.Entry),
		Exits:      exits,
		ArgOffsets: h.Args,
	}
}

// HookSpecs converts every configured hook to its runtime form.
func (c *Config) HookSpecs() []hooks.Spec {
	specs := make([]hooks.Spec, len(c.Hooks))
	for i, h := range c.Hooks {
		specs[i] = h.Spec()
	}
	return specs
}
