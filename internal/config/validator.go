package config

import (
	"fmt"
	"strings"

	"github.com/coral-mesh/waittrace/internal/hooks"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// Validate validates Config.
func (c *Config) Validate() error {
	var errors []ValidationError

	if c.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: "version is required",
		})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (use debug, info, warn or error)", c.Logging.Level),
		})
	}

	if c.Console.Command == "" || strings.ContainsAny(c.Console.Command, " \t") {
		errors = append(errors, ValidationError{
			Field:   "console.command",
			Message: "command must be a single non-empty word",
		})
	}

	if len(c.Hooks) == 0 {
		errors = append(errors, ValidationError{
			Field:   "hooks",
			Message: "at least one hook is required",
		})
	}

	for i, h := range c.Hooks {
		if err := h.Spec().Validate(); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("hooks[%d]", i),
				Message: err.Error(),
			})
		}
	}

	// Address collisions only make sense once every hook is well formed.
	if len(errors) == 0 {
		if _, err := hooks.NewTable(c.HookSpecs()); err != nil {
			errors = append(errors, ValidationError{
				Field:   "hooks",
				Message: err.Error(),
			})
		}
	}

	if len(errors) > 0 {
		return &MultiValidationError{Errors: errors}
	}

	return nil
}
