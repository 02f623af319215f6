package testutil

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a test logger that discards output.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(io.Discard).With().Timestamp().Logger()
}

// LogBuffer collects JSON log lines and is safe for concurrent writers.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset drops everything logged so far.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewCaptureLogger creates a debug-level logger whose output can be
// inspected by the test.
func NewCaptureLogger(t *testing.T) (zerolog.Logger, *LogBuffer) {
	t.Helper()
	logs := &LogBuffer{}
	return zerolog.New(logs).Level(zerolog.DebugLevel), logs
}
