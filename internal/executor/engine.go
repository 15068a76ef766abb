package executor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/parser"
	"github.com/harrison/simdem/internal/similarity"
)

// Engine walks classified documents, runs their commands and grades the
// output.
type Engine struct {
	Shell     Shell
	Presenter Presenter
	Input     Input
	Source    DocumentSource
	Variables VariableLookup    // optional
	LoadEnv   EnvironmentLoader // optional
	Grader    *similarity.Grader
	Debug     bool

	summaries []models.RunSummary
}

// New creates an Engine. The grader reports failures through presenter.
func New(sh Shell, presenter Presenter, input Input, src DocumentSource) *Engine {
	return &Engine{
		Shell:     sh,
		Presenter: presenter,
		Input:     input,
		Source:    src,
		Grader:    similarity.NewGrader(presenter),
	}
}

// walk holds the per-document state of Execute.
type walk struct {
	block       models.ResultBlock
	actual      string // output of the most recent command
	commands    strings.Builder
	lastWasExec bool
}

func (w *walk) resetOutput() {
	w.actual = ""
	w.commands.Reset()
}

// Execute walks lines in order and returns the failed and passed counts.
// Counters are also accumulated on s. The walk stops early with ErrFastFail
// when a test fails under fast-fail, or with ErrQuit when the user quits.
func (e *Engine) Execute(ctx context.Context, lines []models.ClassifiedLine, s *Session) (int, int, error) {
	var w walk
	inPrereqs := false

	e.Presenter.Clear()
	e.Presenter.Prompt()

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return s.Failed, s.Passed, err
		}

		if line.Kind == models.KindResult {
			w.block.Append(line)
			w.lastWasExec = false
			continue
		}

		if w.block.Open {
			if s.Mode.Testing && !e.grade(s, &w) && s.Mode.FastFail {
				return s.Failed, s.Passed, ErrFastFail
			}
			w.block.Reset()
			w.resetOutput()
		}

		if inPrereqs && line.Kind != models.KindPrerequisite {
			e.Presenter.Log("debug", "Got all prerequisites")
			inPrereqs = false
			if err := e.checkPrerequisites(ctx, s, lines); err != nil {
				return s.Failed, s.Passed, err
			}
		}

		switch line.Kind {
		case models.KindPrerequisite:
			if !inPrereqs {
				e.Presenter.Log("debug", "Entering prerequisites")
			}
			inPrereqs = true

		case models.KindExecutable:
			if !w.lastWasExec {
				w.resetOutput()
			}
			if !s.Mode.Learning {
				e.Presenter.Prompt()
				if err := e.Shell.CheckForInteractiveCommand(ctx, s); err != nil {
					return s.Failed, s.Passed, err
				}
			}
			out, err := e.runCommand(ctx, s, line.Text, false)
			if err != nil {
				return s.Failed, s.Passed, err
			}
			w.actual = out
			w.commands.WriteString(line.Text)

		case models.KindHeading:
			if i > 0 {
				if err := e.Shell.CheckForInteractiveCommand(ctx, s); err != nil {
					return s.Failed, s.Passed, err
				}
			}
			if !s.Mode.Simulate {
				e.Presenter.Clear()
				e.Presenter.Heading(line.Text)
			}

		case models.KindDescription, models.KindValidation:
			if !s.Mode.Simulate {
				e.Presenter.Description(line.Text)
			}

		case models.KindNextStep:
			if link, ok := parser.ParseLink(line.Text); ok {
				e.Presenter.NextStep(link.Label, link.Title)
			} else {
				e.Presenter.Description(line.Text)
			}
		}

		w.lastWasExec = line.Kind == models.KindExecutable
	}

	return s.Failed, s.Passed, nil
}

// runCommand makes text the current command and runs it. Shell failures
// such as timeouts are warnings; only ErrQuit and context cancellation stop
// the walk.
func (e *Engine) runCommand(ctx context.Context, s *Session, text string, silent bool) (string, error) {
	s.CurrentCommand = text

	if e.Variables != nil && !silent {
		if unbound := e.Variables.FindUnboundVariables(ctx, text); len(unbound) > 0 {
			if w, ok := e.Presenter.(VariableWarner); ok {
				w.UnboundVariables(unbound)
			} else {
				e.Presenter.Warning(fmt.Sprintf("The following environment variables are not set: %s",
					strings.Join(unbound, ", ")))
			}
		}
	}

	out, err := e.Shell.Run(ctx, s, silent)
	if err != nil {
		if isStopError(ctx, err) {
			return out, err
		}
		e.Presenter.Warning(fmt.Sprintf("Command %q did not complete: %v", strings.TrimSpace(text), err))
	}
	return out, nil
}

// grade closes the open result block, records a TestResult and updates the
// counters. It returns whether the block passed.
func (e *Engine) grade(s *Session, w *walk) bool {
	expected := w.block.Expected
	threshold := w.block.Threshold
	actual := similarity.StripControl(w.actual)

	if math.IsNaN(threshold) {
		e.Presenter.Warning("Malformed expected_similarity annotation; counting this test as failed.")
	}

	res := e.Grader.Evaluate(expected, actual, threshold, false)
	e.Presenter.Log("debug", fmt.Sprintf("Similarity is: %g", res.Ratio))

	if res.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
	s.Results = append(s.Results, models.TestResult{
		Document:  s.Location(),
		Command:   w.commands.String(),
		Expected:  expected,
		Actual:    actual,
		Ratio:     res.Ratio,
		Threshold: threshold,
		Passed:    res.Passed,
	})
	return res.Passed
}
