package parser

import (
	"regexp"
	"strings"

	"github.com/harrison/simdem/internal/models"
)

// linkPattern matches the first markdown link on a line. Additional links on
// the same line are ignored.
var linkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)

// defaultScript is appended to prerequisite hrefs that name a directory
const defaultScript = "script.md"

// Link is a markdown link found on a single line
type Link struct {
	Label string // Text before the link
	Title string // Link text
	Href  string // Link target
}

// ParseLink extracts the first link of a line
func ParseLink(line string) (Link, bool) {
	loc := linkPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Link{}, false
	}
	return Link{
		Label: line[:loc[0]],
		Title: line[loc[2]:loc[3]],
		Href:  line[loc[4]:loc[5]],
	}, true
}

// NormalizeHref makes a prerequisite href name a markdown file, appending
// script.md to directory references.
func NormalizeHref(href string) string {
	if strings.HasSuffix(href, ".md") {
		return href
	}
	if !strings.HasSuffix(href, "/") {
		href += "/"
	}
	return href + defaultScript
}

// ParsePrerequisite converts a prerequisite line into a step.
// Lines without a link are not steps.
func ParsePrerequisite(line string) (models.PrerequisiteStep, bool) {
	if strings.TrimSpace(line) == "" {
		return models.PrerequisiteStep{}, false
	}
	link, ok := ParseLink(line)
	if !ok {
		return models.PrerequisiteStep{}, false
	}
	return models.PrerequisiteStep{
		Title: strings.TrimSpace(link.Title),
		Href:  NormalizeHref(link.Href),
	}, true
}

// ParseNextStep converts a next-step line into a step. The link target must
// have the form directory/filename.
func ParseNextStep(line string) (models.NextStep, bool) {
	if strings.TrimSpace(line) == "" {
		return models.NextStep{}, false
	}
	link, ok := ParseLink(line)
	if !ok {
		return models.NextStep{}, false
	}
	idx := strings.LastIndex(link.Href, "/")
	if idx < 0 {
		return models.NextStep{}, false
	}
	return models.NextStep{
		Label:     link.Label,
		Title:     link.Title,
		Directory: link.Href[:idx],
		Filename:  link.Href[idx+1:],
	}, true
}

// PrerequisiteSteps collects the steps of all prerequisite lines
func PrerequisiteSteps(lines []models.ClassifiedLine) []models.PrerequisiteStep {
	var steps []models.PrerequisiteStep
	for _, l := range lines {
		if l.Kind != models.KindPrerequisite {
			continue
		}
		if step, ok := ParsePrerequisite(l.Text); ok {
			steps = append(steps, step)
		}
	}
	return steps
}

// NextSteps collects the steps of all next-step lines in document order
func NextSteps(lines []models.ClassifiedLine) []models.NextStep {
	var steps []models.NextStep
	for _, l := range lines {
		if l.Kind != models.KindNextStep {
			continue
		}
		if step, ok := ParseNextStep(l.Text); ok {
			steps = append(steps, step)
		}
	}
	return steps
}
