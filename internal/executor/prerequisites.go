package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/parser"
	"github.com/harrison/simdem/internal/similarity"
	"github.com/harrison/simdem/internal/source"
)

// checkPrerequisites validates every prerequisite listed in lines and runs
// the ones whose validation fails. Child results never touch s's counters.
func (e *Engine) checkPrerequisites(ctx context.Context, s *Session, lines []models.ClassifiedLine) error {
	var steps []models.PrerequisiteStep
	for _, line := range lines {
		if line.Kind != models.KindPrerequisite || strings.TrimSpace(line.Text) == "" {
			continue
		}
		e.Presenter.Description(line.Text)
		if step, ok := parser.ParsePrerequisite(line.Text); ok {
			steps = append(steps, step)
		}
	}

	for _, step := range steps {
		dir, filename := source.ResolvePrerequisite(s.ScriptDir, step.Href)
		loc := source.Location(dir, filename)

		if s.OnChain(loc) {
			e.Presenter.Warning(fmt.Sprintf("Skipping prerequisite %q: %s is already being run.", step.Title, loc))
			continue
		}
		if s.Depth() >= MaxPrerequisiteDepth {
			e.Presenter.Warning(fmt.Sprintf("Skipping prerequisite %q: prerequisites nested deeper than %d.",
				step.Title, MaxPrerequisiteDepth))
			continue
		}

		e.Presenter.Log("debug", fmt.Sprintf("Validating prerequisite: %s in %s", filename, dir))
		child := s.Prerequisite(dir, filename)
		if err := e.runIfValidationFails(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runIfValidationFails(ctx context.Context, child *Session) error {
	e.Presenter.Information("Validating pre-requisite...", false)

	lines, err := e.load(ctx, child)
	if err != nil {
		if errors.Is(err, source.ErrMissingDocument) {
			e.Presenter.Warning(fmt.Sprintf("Prerequisite %s not found.", child.Location()))
			return nil
		}
		return err
	}

	passed, err := e.validate(ctx, child, lines)
	if err != nil {
		return err
	}
	if passed {
		e.Presenter.Information("Validation passed.", false)
		return nil
	}

	e.Presenter.Information("Validation failed. Let's run the pre-requisite script.", false)
	if err := e.Shell.CheckForInteractiveCommand(ctx, child); err != nil {
		return err
	}
	if _, err := e.runDocument(ctx, child, lines); err != nil {
		return err
	}
	e.Presenter.Clear()
	return nil
}

// validate runs the commands of the validation sections in lines and grades
// their result blocks silently. A document without graded validation blocks
// is considered satisfied.
func (e *Engine) validate(ctx context.Context, s *Session, lines []models.ClassifiedLine) (bool, error) {
	var w walk
	inValidation := false
	result := true

	for _, line := range lines {
		if line.Kind == models.KindResult {
			if inValidation {
				w.block.Append(line)
			}
			w.lastWasExec = false
			continue
		}

		if w.block.Open {
			actual := similarity.StripControl(w.actual)
			if !e.Grader.IsPass(w.block.Expected, actual, w.block.Threshold, true) {
				e.Presenter.Log("debug", fmt.Sprintf("expected results: '%s'", w.block.Expected))
				e.Presenter.Log("debug", fmt.Sprintf("actual results: '%s'", actual))
				result = false
			}
			w.block.Reset()
			w.resetOutput()
		}

		switch line.Kind {
		case models.KindValidation:
			inValidation = true
		case models.KindHeading:
			inValidation = parser.IsValidationHeading(line.Text)
		case models.KindExecutable:
			if !inValidation {
				break
			}
			if !w.lastWasExec {
				w.resetOutput()
			}
			e.Presenter.Log("debug", "Execute validation command: "+strings.TrimSpace(line.Text))
			out, err := e.runCommand(ctx, s, line.Text, !e.Debug)
			if err != nil {
				return false, err
			}
			w.actual = out
		}

		w.lastWasExec = line.Kind == models.KindExecutable
	}
	return result, nil
}
