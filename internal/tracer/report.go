package tracer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteReport renders s in the operator-facing dump format.
func WriteReport(w io.Writer, s State) error {
	var b strings.Builder

	b.WriteString("[WaitTrace] Trace table:\n")
	for _, function := range sortedKeys(s.Pending) {
		fmt.Fprintf(&b, "\t%s\n", function)
		for _, rec := range s.Pending[function] {
			fmt.Fprintf(&b, "\t\t%d params: %s $esp: %x\n", rec.ID, formatParams(rec.Params), rec.StackPointer)
		}
	}

	if len(s.Counters) > 0 {
		b.WriteString("Counters:\n")
		for _, function := range sortedKeys(s.Counters) {
			fmt.Fprintf(&b, "\t%s\n", function)
			for _, site := range s.CallSites(function) {
				fmt.Fprintf(&b, "\t\t%s esp:%x\n", formatParams(site.Params), site.StackPointer)
				for _, id := range site.IDs {
					fmt.Fprintf(&b, "\t\t\t%d\n", id)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(s.Signals) > 0 {
		b.WriteString("Signals:\n")
		for _, object := range sortedKeys(s.Signals) {
			fmt.Fprintf(&b, "\t%s: %d\n", hex32(object), s.Signals[object])
		}
	}

	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatParams(params []uint32) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.FormatUint(uint64(p), 16)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
