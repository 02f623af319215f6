// Package errors provides cleanup helpers that log instead of dropping errors.
package errors

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes closer and logs a failure at warn level.
// Use this in defer statements to avoid suppressing close errors.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// CloseOnDone closes closer once ctx is done, which unblocks readers parked
// on it. The returned stop function cancels the close if it has not run yet.
func CloseOnDone(ctx context.Context, logger zerolog.Logger, closer io.Closer, msg string) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		DeferClose(logger, closer, msg)
	})
}
