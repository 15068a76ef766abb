package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/harrison/simdem/internal/models"
)

// Document grammar markers
const (
	FenceToken        = "```"
	ResultsMarker     = "results:"
	SimilarityKey     = "expected_similarity="
	HeadingMarker     = "#"
	CommentMarker     = "#"
	nextStepsTitle    = "next steps"
	prerequisitesText = "prerequisites"
	validationPrefix  = "validation"
)

// AnnotationError reports a fence whose expected_similarity value is not a
// valid decimal. Result lines of that block carry a NaN threshold.
type AnnotationError struct {
	Line  int    // 1-based line number of the fence
	Value string // Offending annotation text
	Err   error  // Underlying parse error
}

// Error implements the error interface
func (e *AnnotationError) Error() string {
	return fmt.Sprintf("line %d: malformed expected_similarity %q: %v", e.Line, e.Value, e.Err)
}

// Unwrap returns the underlying parse error
func (e *AnnotationError) Unwrap() error {
	return e.Err
}

// classifierState holds the region flags of the classifier
type classifierState struct {
	inCodeBlock   bool
	inResults     bool
	inNextSteps   bool
	inPrereqs     bool
	inValidation  bool
	threshold     float64
	annotationErr []error
}

// Classify segments raw document lines into typed records.
//
// Lines keep their trailing newline. The returned slice preserves source
// order and always ends with exactly one end_of_document record. Malformed
// similarity annotations are collected and returned without stopping the
// walk.
func Classify(lines []string) ([]models.ClassifiedLine, []error) {
	st := &classifierState{threshold: models.DefaultExpectedSimilarity}
	classified := make([]models.ClassifiedLine, 0, len(lines)+1)

	for i, line := range lines {
		if rec, ok := st.next(i+1, line); ok {
			classified = append(classified, rec)
		}
	}

	classified = append(classified, models.ClassifiedLine{Kind: models.KindEndOfDocument})
	return classified, st.annotationErr
}

// next applies the transition rules in priority order and returns the
// record to emit, if any.
func (st *classifierState) next(lineNo int, line string) (models.ClassifiedLine, bool) {
	switch {
	case strings.HasPrefix(strings.ToLower(line), ResultsMarker):
		st.inResults = true
		return models.ClassifiedLine{}, false

	case strings.HasPrefix(line, FenceToken) && !st.inCodeBlock:
		st.inCodeBlock = true
		st.threshold = st.parseThreshold(lineNo, line)
		return models.ClassifiedLine{}, false

	case strings.HasPrefix(line, FenceToken) && st.inCodeBlock:
		st.inCodeBlock = false
		st.inResults = false
		return models.ClassifiedLine{}, false

	case st.inCodeBlock && st.inResults:
		return models.ClassifiedLine{
			Kind:               models.KindResult,
			Text:               line,
			ExpectedSimilarity: st.threshold,
		}, true

	case st.inCodeBlock:
		if strings.HasPrefix(line, CommentMarker) {
			return models.ClassifiedLine{}, false
		}
		return models.ClassifiedLine{Kind: models.KindExecutable, Text: line}, true

	case strings.HasPrefix(line, HeadingMarker) && !st.inResults:
		st.enterSection(HeadingText(line))
		return models.ClassifiedLine{Kind: models.KindHeading, Text: line}, true
	}

	switch {
	case st.inNextSteps:
		return models.ClassifiedLine{Kind: models.KindNextStep, Text: line}, true
	case st.inPrereqs:
		return models.ClassifiedLine{Kind: models.KindPrerequisite, Text: line}, true
	case st.inValidation:
		return models.ClassifiedLine{Kind: models.KindValidation, Text: line}, true
	default:
		return models.ClassifiedLine{Kind: models.KindDescription, Text: line}, true
	}
}

// enterSection updates the region flags for a heading
func (st *classifierState) enterSection(title string) {
	title = strings.ToLower(title)
	switch {
	case title == nextStepsTitle:
		st.inNextSteps = true
	case title == prerequisitesText:
		st.inPrereqs = true
	case strings.HasPrefix(title, validationPrefix):
		st.inValidation = true
	default:
		st.inNextSteps = false
		st.inPrereqs = false
		st.inValidation = false
	}
}

// parseThreshold reads the expected_similarity annotation of a fence line.
// A missing annotation yields the default; a malformed one yields NaN.
func (st *classifierState) parseThreshold(lineNo int, line string) float64 {
	pos := strings.Index(strings.ToLower(line), SimilarityKey)
	if pos < 0 {
		return models.DefaultExpectedSimilarity
	}

	value := strings.TrimSpace(line[pos+len(SimilarityKey):])
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		st.annotationErr = append(st.annotationErr, &AnnotationError{Line: lineNo, Value: value, Err: err})
		return math.NaN()
	}
	return f
}

// HeadingText returns the trimmed text of a heading line without its markers
func HeadingText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), HeadingMarker))
}

// IsValidationHeading reports whether a heading line opens a validation section
func IsValidationHeading(line string) bool {
	return strings.HasPrefix(strings.ToLower(HeadingText(line)), validationPrefix)
}
