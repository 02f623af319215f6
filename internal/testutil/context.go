// Package testutil provides shared helpers for waittrace tests.
package testutil

import (
	"context"
	"testing"
	"time"
)

// NewTestContext returns a context that is canceled when the test ends or
// after 30 seconds, whichever comes first.
func NewTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
