package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harrison/simdem/internal/models"
)

// Render re-serializes the executable and result lines of a classified
// document into fenced blocks. Classifying the output yields the same
// executable and result lines, in the same order and with the same
// thresholds.
func Render(lines []models.ClassifiedLine) string {
	var sb strings.Builder
	var open models.LineKind
	var threshold float64

	closeFence := func() {
		if open != "" {
			sb.WriteString(FenceToken + "\n\n")
			open = ""
		}
	}

	for _, l := range lines {
		switch l.Kind {
		case models.KindExecutable:
			if open != models.KindExecutable {
				closeFence()
				sb.WriteString(FenceToken + "\n")
				open = models.KindExecutable
			}
			sb.WriteString(ensureNewline(l.Text))
		case models.KindResult:
			if open != models.KindResult || !sameThreshold(threshold, l.ExpectedSimilarity) {
				closeFence()
				sb.WriteString("Results:\n\n")
				sb.WriteString(resultFence(l.ExpectedSimilarity))
				open = models.KindResult
				threshold = l.ExpectedSimilarity
			}
			sb.WriteString(ensureNewline(l.Text))
		default:
			closeFence()
		}
	}
	closeFence()
	return sb.String()
}

// Script renders the executable lines of a document as a bash script
func Script(lines []models.ClassifiedLine) string {
	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env bash\n")
	for _, l := range lines {
		if l.Kind == models.KindExecutable {
			sb.WriteString(ensureNewline(l.Text))
		}
	}
	return sb.String()
}

func resultFence(threshold float64) string {
	if threshold == models.DefaultExpectedSimilarity {
		return FenceToken + "\n"
	}
	return fmt.Sprintf("%s%s%s\n", FenceToken, SimilarityKey, strconv.FormatFloat(threshold, 'g', -1, 64))
}

func sameThreshold(a, b float64) bool {
	return a == b || (a != a && b != b)
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
