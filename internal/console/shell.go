package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	errs "github.com/coral-mesh/waittrace/internal/errors"
)

// ShellConfig configures an interactive Shell.
type ShellConfig struct {
	Prompt      string
	HistoryFile string
	// Stdin and Stdout default to the process terminal.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Shell is an interactive debug console over a Registry.
type Shell struct {
	id       string
	logger   zerolog.Logger
	registry *Registry
	cfg      ShellConfig
}

// NewShell creates a Shell with a fresh session id.
func NewShell(logger zerolog.Logger, registry *Registry, cfg ShellConfig) *Shell {
	id := uuid.New().String()
	return &Shell{
		id:       id,
		logger:   logger.With().Str("component", "console").Str("session_id", id).Logger(),
		registry: registry,
		cfg:      cfg,
	}
}

// ID returns the session id.
func (s *Shell) ID() string {
	return s.id
}

// Run reads commands until exit, EOF, an interrupt on an empty line, or ctx
// is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.cfg.Prompt,
		HistoryFile:     s.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           s.cfg.Stdin,
		Stdout:          s.cfg.Stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer errs.DeferClose(s.logger, rl, "Failed to close readline")

	s.logger.Info().Msg("Console session started")
	defer s.logger.Info().Msg("Console session ended")

	stop := errs.CloseOnDone(ctx, s.logger, rl, "Failed to close readline")
	defer stop()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		out, exit := s.Execute(line)
		if out != "" {
			if _, err := io.WriteString(rl.Stdout(), out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if exit {
			return nil
		}
	}
}

// Execute runs one input line and reports whether the shell should exit.
func (s *Shell) Execute(line string) (string, bool) {
	line = strings.TrimSpace(line)

	switch line {
	case "":
		return "", false
	case "exit", "quit":
		return "", true
	case "help":
		return s.help(), false
	}

	out, err := s.registry.Dispatch(line)
	if errors.Is(err, ErrUnknownCommand) {
		s.logger.Debug().Str("input", line).Msg("Unknown console command")
		return fmt.Sprintf("%v. Type 'help' for a list of commands.\n", err), false
	}
	return out, false
}

func (s *Shell) help() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range s.registry.Names() {
		fmt.Fprintf(&b, "  %s %s\n", name, s.registry.Usage(name))
	}
	b.WriteString("  help\n")
	b.WriteString("  exit\n")
	return b.String()
}
