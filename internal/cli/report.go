package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/leofalp/jsonguard/core/guard"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// writeOutcome renders an outcome in the requested format.
func writeOutcome(w io.Writer, out *guard.Outcome, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return writeOutcomeText(w, out)
}

func writeOutcomeText(w io.Writer, out *guard.Outcome) error {
	var b strings.Builder

	fmt.Fprintf(&b, "status:   %s\n", out.Status)
	fmt.Fprintf(&b, "attempts: %d\n", out.AttemptsUsed)
	fmt.Fprintf(&b, "run id:   %s\n", out.RunID)

	if out.Succeeded() {
		b.WriteString("record:\n")
		for _, name := range out.Record.Names() {
			value, _ := out.Record.Get(name)
			switch v := value.(type) {
			case []string:
				fmt.Fprintf(&b, "  %s: [%s]\n", name, strings.Join(quoteAll(v), ", "))
			default:
				fmt.Fprintf(&b, "  %s: %q\n", name, v)
			}
		}
	}

	if len(out.Failures) > 0 {
		b.WriteString("failures:\n")
		for _, f := range out.Failures {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", f.Attempt, f.Stage, f.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
