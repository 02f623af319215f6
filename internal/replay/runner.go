package replay

import (
	"context"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/waittrace/internal/hooks"
)

// Target is the hook layer a trace is replayed into.
type Target interface {
	Translate(base uint64, code []byte) []uint64
	InstrumentAll() []uint64
	Execute(g hooks.Guest, vaddr uint64)
}

// Result summarizes a replay.
type Result struct {
	VCPUs        int
	Events       int
	Instrumented int
}

// Runner replays traces into a Target.
type Runner struct {
	logger zerolog.Logger
	target Target
}

// NewRunner creates a Runner.
func NewRunner(logger zerolog.Logger, target Target) *Runner {
	return &Runner{
		logger: logger.With().Str("component", "replay").Logger(),
		target: target,
	}
}

// Run instruments the trace's blocks and executes its events, one goroutine
// per vCPU. Canceling ctx stops the remaining events.
func (r *Runner) Run(ctx context.Context, trace *Trace) (Result, error) {
	var res Result

	if len(trace.Blocks) == 0 {
		res.Instrumented = len(r.target.InstrumentAll())
	}
	for i := range trace.Blocks {
		b := &trace.Blocks[i]
		res.Instrumented += len(r.target.Translate(b.Base, b.Bytes()))
	}

	streams := trace.streams()
	res.VCPUs = len(streams)

	g, ctx := errgroup.WithContext(ctx)
	for _, vcpu := range slices.Sorted(maps.Keys(streams)) {
		events := streams[vcpu]
		g.Go(func() error {
			for _, ev := range events {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.target.Execute(frameGuest{ev: ev}, ev.PC)
			}
			r.logger.Debug().Int("vcpu", vcpu).Int("events", len(events)).Msg("vCPU stream replayed")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Events = len(trace.Events)
	r.logger.Info().
		Int("vcpus", res.VCPUs).
		Int("events", res.Events).
		Msg("Trace replayed")
	return res, nil
}
