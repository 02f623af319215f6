// Package console exposes the tracer through debug-monitor style commands.
//
// Commands are registered by name, the same way an emulator plugin registers
// a monitor command, and receive the rest of the input line as arguments.
package console

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for unregistered command names.
var ErrUnknownCommand = errors.New("unknown command")

// Handler runs a command with its argument string and returns the output.
type Handler func(args string) string

type command struct {
	usage   string
	handler Handler
}

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]command)}
}

// Register binds name to h. usage is the argument synopsis shown in help.
func (r *Registry) Register(name, usage string, h Handler) error {
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid command name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = command{usage: usage, handler: h}
	return nil
}

// Unregister removes name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.commands, name)
}

// Names returns the registered command names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.commands))
}

// Usage returns the argument synopsis of name.
func (r *Registry) Usage(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name].usage
}

// Dispatch splits line into a command name and its arguments and runs the
// matching handler.
func (r *Registry) Dispatch(line string) (string, error) {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")

	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return cmd.handler(strings.TrimSpace(args)), nil
}
