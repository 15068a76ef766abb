// Package report writes machine-readable test reports. Each invocation
// appends its runs to the report file under a file lock, so parallel
// simdem processes can share one report.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/harrison/simdem/internal/filelock"
	"github.com/harrison/simdem/internal/models"
)

// Report is the on-disk document
type Report struct {
	Runs []Run `json:"runs"`
}

// Run is one document run
type Run struct {
	RunID      string    `json:"run_id"`
	Document   string    `json:"document"`
	Mode       string    `json:"mode"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Tests      []Test    `json:"tests"`
}

// Test is one graded result block
type Test struct {
	Command   string   `json:"command"`
	Expected  string   `json:"expected"`
	Actual    string   `json:"actual"`
	Ratio     float64  `json:"ratio"`
	Threshold *float64 `json:"threshold"` // null when the annotation was malformed
	Passed    bool     `json:"passed"`
}

// FromSummary converts a run summary into its report form
func FromSummary(s models.RunSummary) Run {
	run := Run{
		RunID:      s.RunID,
		Document:   s.Document,
		Mode:       s.Mode,
		Passed:     s.Passed,
		Failed:     s.Failed,
		StartedAt:  s.StartedAt.UTC(),
		DurationMS: s.Duration.Milliseconds(),
		Tests:      make([]Test, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		t := Test{
			Command:  r.Command,
			Expected: r.Expected,
			Actual:   r.Actual,
			Ratio:    r.Ratio,
			Passed:   r.Passed,
		}
		if !math.IsNaN(r.Threshold) {
			threshold := r.Threshold
			t.Threshold = &threshold
		}
		run.Tests = append(run.Tests, t)
	}
	return run
}

// Totals sums passed and failed tests over every run
func (r *Report) Totals() (passed, failed int) {
	for _, run := range r.Runs {
		passed += run.Passed
		failed += run.Failed
	}
	return passed, failed
}

// Append adds summaries to the report at path, creating it if needed.
func Append(ctx context.Context, path string, summaries []models.RunSummary) error {
	return filelock.Update(ctx, path, func(current []byte) ([]byte, error) {
		var rep Report
		if len(current) > 0 {
			if err := json.Unmarshal(current, &rep); err != nil {
				return nil, fmt.Errorf("parse existing report %s: %w", path, err)
			}
		}
		for _, s := range summaries {
			rep.Runs = append(rep.Runs, FromSummary(s))
		}
		if rep.Runs == nil {
			rep.Runs = []Run{}
		}

		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		return append(data, '\n'), nil
	})
}

// Read loads the report at path
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &rep, nil
}
