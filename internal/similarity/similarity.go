// Package similarity grades captured command output against expected output.
//
// The score is the ratio reported by a classic sequence matcher run over the
// characters of both texts: 2*M/T where M is the number of matched characters
// and T the combined length. Whitespace is junk: it never anchors a match but
// is absorbed when adjacent to one.
package similarity

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// junkChars are treated as low-significance characters by the matcher
const junkChars = " \t\n\r"

// ansiEscape matches terminal color sequences such as "\x1b[31m".
var ansiEscape = regexp.MustCompile(`\x1b[^m]*m`)

// Reporter receives the details of a failed comparison
type Reporter interface {
	TestResults(expected, actual string, ratio, threshold float64)
}

// Result holds the outcome of a single comparison
type Result struct {
	Ratio     float64
	Threshold float64
	Passed    bool
}

func isJunk(s string) bool {
	return strings.Contains(junkChars, s)
}

// chars splits s into one element per rune
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Ratio computes the similarity of actual to expected in [0,1].
// The argument order matters for tie-breaking and mirrors (actual, expected).
func Ratio(actual, expected string) float64 {
	m := difflib.NewMatcherWithJunk(chars(actual), chars(expected), true, isJunk)
	return m.Ratio()
}

// StripControl removes terminal color codes from captured output
func StripControl(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// UnifiedDiff renders a line diff from expected to actual for failure reports
func UnifiedDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// Grader decides pass/fail for result blocks and reports failures
type Grader struct {
	reporter Reporter
}

// NewGrader creates a Grader. A nil reporter disables failure reports.
func NewGrader(reporter Reporter) *Grader {
	return &Grader{reporter: reporter}
}

// Grade compares actual against expected. Equality with the threshold passes.
func (g *Grader) Grade(expected, actual string, threshold float64) Result {
	ratio := Ratio(actual, expected)
	return Result{
		Ratio:     ratio,
		Threshold: threshold,
		Passed:    ratio >= threshold,
	}
}

// Evaluate grades actual against expected and, when the check fails and
// silent is false, shows the reporter the details.
func (g *Grader) Evaluate(expected, actual string, threshold float64, silent bool) Result {
	res := g.Grade(expected, actual, threshold)
	if !res.Passed && !silent && g.reporter != nil {
		g.reporter.TestResults(expected, actual, res.Ratio, threshold)
	}
	return res
}

// IsPass reports whether actual is similar enough to expected.
func (g *Grader) IsPass(expected, actual string, threshold float64, silent bool) bool {
	return g.Evaluate(expected, actual, threshold, silent).Passed
}
