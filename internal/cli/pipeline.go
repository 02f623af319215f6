package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/waittrace/internal/config"
	"github.com/coral-mesh/waittrace/internal/hooks"
	"github.com/coral-mesh/waittrace/internal/logging"
	"github.com/coral-mesh/waittrace/internal/replay"
	"github.com/coral-mesh/waittrace/internal/tracer"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// loadConfig resolves, overrides and validates the configuration.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.NewLoader().Load()
	}
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// pipeline wires the hook dispatcher and replay runner to a tracer.
type pipeline struct {
	cfg        *config.Config
	logger     zerolog.Logger
	tracer     *tracer.Tracer
	dispatcher *hooks.Dispatcher
	runner     *replay.Runner
}

// newPipeline builds the tracing pipeline. Command output goes to out, logs
// go to logOut.
func newPipeline(opts *globalOptions, out, logOut io.Writer) (*pipeline, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: logOut,
	})

	table, err := hooks.NewTable(cfg.HookSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to build hook table: %w", err)
	}

	tr := tracer.New(logger,
		tracer.WithOutput(out),
		tracer.WithCommandName(cfg.Console.Command),
	)
	dispatcher := hooks.NewDispatcher(logger, table, tr)

	return &pipeline{
		cfg:        cfg,
		logger:     logger,
		tracer:     tr,
		dispatcher: dispatcher,
		runner:     replay.NewRunner(logger, dispatcher),
	}, nil
}
