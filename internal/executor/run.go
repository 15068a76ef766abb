package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/parser"
	"github.com/harrison/simdem/internal/source"
)

// Run executes the document of s and then every next step the user
// selects, one after another. It returns a summary per document run,
// prerequisites included.
func (e *Engine) Run(ctx context.Context, s *Session) ([]models.RunSummary, error) {
	e.summaries = nil
	for s != nil {
		next, err := e.runOnce(ctx, s)
		if err != nil {
			if errors.Is(err, ErrQuit) {
				return e.summaries, nil
			}
			return e.summaries, err
		}
		s = next
	}
	return e.summaries, nil
}

// runOnce runs one document and returns the session selected as its next
// step, or nil.
func (e *Engine) runOnce(ctx context.Context, s *Session) (*Session, error) {
	e.Presenter.Log("debug", fmt.Sprintf("Running script called '%s' in '%s'", s.Filename, s.ScriptDir))

	lines, err := e.load(ctx, s)
	if err != nil {
		return nil, err
	}
	if _, err := e.runDocument(ctx, s, lines); err != nil {
		return nil, err
	}

	if s.Mode.IsPrerequisite {
		return nil, nil
	}
	return e.selectNextStep(s, parser.NextSteps(lines))
}

// runDocument executes lines for s, reports test results and records the
// run summary. It does not navigate.
func (e *Engine) runDocument(ctx context.Context, s *Session, lines []models.ClassifiedLine) (models.RunSummary, error) {
	started := time.Now()

	if e.LoadEnv != nil && !source.IsURL(s.ScriptDir) {
		env, err := e.LoadEnv(s.ScriptDir, s.Mode.Testing)
		if err != nil {
			e.Presenter.Warning(fmt.Sprintf("Unable to load environment: %v", err))
		} else {
			s.Env = env
		}
	}
	if applier, ok := e.Shell.(EnvironmentApplier); ok && s.Env != nil {
		if err := applier.ApplyEnvironment(ctx, s.Env); err != nil {
			e.Presenter.Warning(fmt.Sprintf("Unable to apply environment: %v", err))
		}
	}

	failed, passed, err := e.Execute(ctx, lines, s)

	summary := s.Summary()
	summary.StartedAt = started
	summary.Duration = time.Since(started)
	e.summaries = append(e.summaries, summary)

	// only this walk's own ErrFastFail is reported here; a prerequisite's
	// test failure stops the parent unchanged
	if err != nil && (IsTestFailure(err) || !errors.Is(err, ErrFastFail)) {
		return summary, err
	}

	if s.Mode.Testing {
		e.reportResults(failed, passed)
		if failed > 0 && s.Mode.FastFail {
			return summary, &TestFailureError{Document: s.Location(), Failed: failed, Passed: passed}
		}
	}
	return summary, nil
}

// load reads and classifies the document of s. A missing local document is
// replaced by a generated table of contents of its directory.
func (e *Engine) load(ctx context.Context, s *Session) ([]models.ClassifiedLine, error) {
	raw, err := e.Source.Load(ctx, s.ScriptDir, s.Filename, s.Mode.Testing)
	if errors.Is(err, source.ErrMissingDocument) && !source.IsURL(s.ScriptDir) {
		e.Presenter.Log("info", fmt.Sprintf("No document at %s, generating table of contents", s.Location()))
		raw, err = parser.GenerateTOC(s.ScriptDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", source.ErrMissingDocument, s.Location())
		}
	}
	if err != nil {
		return nil, err
	}

	lines, annotationErrs := parser.Classify(raw)
	for _, aerr := range annotationErrs {
		e.Presenter.Warning(fmt.Sprintf("%s: %v", s.Location(), aerr))
	}

	if e.Debug {
		e.Presenter.Log("debug", "Classified lines: ")
		for _, l := range lines {
			e.Presenter.Log("debug", fmt.Sprintf("%+v", l))
		}
	}
	return lines, nil
}

func (e *Engine) reportResults(failed, passed int) {
	e.Presenter.Heading("Test Results")
	if failed > 0 {
		e.Presenter.Warning(fmt.Sprintf("Failed Tests: %d", failed))
		e.Presenter.Information(fmt.Sprintf("Passed Tests: %d", passed), false)
		e.Presenter.Instruction("View failure reports in context in the above output.")
		return
	}
	e.Presenter.Information("No failed tests.", true)
	e.Presenter.Information(fmt.Sprintf("Passed Tests: %d", passed), false)
}

func isStopError(ctx context.Context, err error) bool {
	return errors.Is(err, ErrQuit) || ctx.Err() != nil
}
