package models

import "time"

// TestResult is the outcome of grading one result block
type TestResult struct {
	Document  string  // Path of the document containing the block
	Command   string  // Command(s) whose output was graded
	Expected  string  // Expected text from the result block
	Actual    string  // Captured output with control sequences stripped
	Ratio     float64 // Similarity ratio in [0,1]
	Threshold float64 // Threshold the ratio was compared against
	Passed    bool    // ratio >= threshold
}

// RunSummary aggregates the test results of one document run
type RunSummary struct {
	RunID     string        // Unique identifier of the run
	Document  string        // Document path
	Mode      string        // Mode name (tutorial, demo, test, learn)
	Passed    int           // Number of passed tests
	Failed    int           // Number of failed tests
	Results   []TestResult  // Individual results in document order
	StartedAt time.Time     // When the run started
	Duration  time.Duration // Total run time
}

// Total returns the number of graded blocks
func (s RunSummary) Total() int {
	return s.Passed + s.Failed
}
