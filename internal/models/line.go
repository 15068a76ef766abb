package models

// DefaultExpectedSimilarity is the threshold applied to result blocks whose
// opening fence carries no expected_similarity annotation.
const DefaultExpectedSimilarity = 0.66

// LineKind identifies the role of a classified document line
type LineKind string

// Line kinds produced by the classifier
const (
	KindHeading       LineKind = "heading"
	KindDescription   LineKind = "description"
	KindExecutable    LineKind = "executable"
	KindResult        LineKind = "result"
	KindPrerequisite  LineKind = "prerequisite"
	KindNextStep      LineKind = "next_step"
	KindValidation    LineKind = "validation"
	KindEndOfDocument LineKind = "end_of_document"
)

// ClassifiedLine is a single source line tagged with its role in the document.
// ExpectedSimilarity is only meaningful for KindResult lines.
type ClassifiedLine struct {
	Kind               LineKind // Role of the line
	Text               string   // Raw line text including its trailing newline
	ExpectedSimilarity float64  // Grading threshold for result lines
}

// IsEnd reports whether the line is the terminal end_of_document record
func (l ClassifiedLine) IsEnd() bool {
	return l.Kind == KindEndOfDocument
}

// ResultBlock accumulates the expected output of a contiguous run of result lines
type ResultBlock struct {
	Expected  string  // Concatenated expected text
	Threshold float64 // Similarity threshold captured from the result lines
	Open      bool    // Whether the block is still accumulating
}

// Append adds a result line to the block, opening it if necessary
func (b *ResultBlock) Append(line ClassifiedLine) {
	if !b.Open {
		b.Open = true
		b.Expected = ""
	}
	b.Expected += line.Text
	b.Threshold = line.ExpectedSimilarity
}

// Reset closes the block and discards its content
func (b *ResultBlock) Reset() {
	b.Open = false
	b.Expected = ""
	b.Threshold = 0
}

// PrerequisiteStep is a link to a document that must be satisfied first
type PrerequisiteStep struct {
	Title string // Link text
	Href  string // Normalized path, always naming a .md file
}

// NextStep is a link to a follow-on document offered after a run completes
type NextStep struct {
	Label     string // Text preceding the link (e.g. "  1. ")
	Title     string // Link text
	Directory string // Directory part of the link target
	Filename  string // File part of the link target
}
