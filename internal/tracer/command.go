package tracer

import (
	"fmt"
	"io"
	"strings"
)

// RunCommand executes a console command and returns the rendered output,
// which is also written to the tracer's operator channel.
//
// "dump" and the empty string render the current state, "clear" resets it.
// Anything else yields an unknown-command message with a usage hint.
func (t *Tracer) RunCommand(args string) string {
	var b strings.Builder

	switch args {
	case "", "dump":
		// Rendering into a strings.Builder cannot fail.
		_ = WriteReport(&b, t.Snapshot())
	case "clear":
		t.Clear()
		b.WriteString("[WaitTrace] Traces cleared.\n")
	default:
		fmt.Fprintf(&b, "[WaitTrace] Unknown command: %s\n", args)
		fmt.Fprintf(&b, "Usage: %s [dump|clear]\n", t.command)
	}

	out := b.String()
	if _, err := io.WriteString(t.out, out); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to write command output")
	}
	return out
}
