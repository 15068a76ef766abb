package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// paint wraps s in the given attributes when enabled, regardless of whether
// the process itself writes to a terminal.
func paint(enabled bool, s string, attrs ...color.Attribute) string {
	if !enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Items      []string // Related names (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning, in yellow when color is set
func (w Warning) Display(out io.Writer, colored bool) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	for i, item := range w.Items {
		fmt.Fprintf(&b, "      %d. %s\n", i+1, item)
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, paint(colored, b.String(), color.FgYellow))
}

// UnboundVariables creates the warning shown before a command that
// references variables without a value
func UnboundVariables(names []string) Warning {
	title := "Environment variable not set"
	if len(names) != 1 {
		title = "Environment variables not set"
	}
	return Warning{
		Title:      title,
		Message:    "The command below references variables that have no value:",
		Items:      names,
		Suggestion: "Define them in env.local.json next to the script or export them before running.",
	}
}
