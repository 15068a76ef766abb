package display

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
)

// TestFailure is the report shown when graded output is not similar enough
type TestFailure struct {
	Expected  string
	Actual    string
	Ratio     float64
	Threshold float64
	Diff      string // unified diff, optional
}

// Display writes the report, coloring expected green and actual red when
// color is set
func (f TestFailure) Display(out io.Writer, colored bool) {
	var b strings.Builder
	b.WriteString(paint(colored, "FAILED TEST", color.FgRed, color.Bold))
	b.WriteString("\n\n")

	threshold := fmt.Sprintf("%.2f", f.Threshold)
	if math.IsNaN(f.Threshold) {
		threshold = "invalid annotation"
	}
	fmt.Fprintf(&b, "Similarity ratio:    %.2f\n", f.Ratio)
	fmt.Fprintf(&b, "Expected similarity: %s\n\n", threshold)

	b.WriteString("Expected results:\n")
	b.WriteString(paint(colored, ensureNewline(f.Expected), color.FgGreen))
	b.WriteString("Actual results:\n")
	b.WriteString(paint(colored, ensureNewline(f.Actual), color.FgRed))

	if f.Diff != "" {
		b.WriteString("\nDifferences:\n")
		b.WriteString(ensureNewline(f.Diff))
	}
	fmt.Fprint(out, b.String())
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
