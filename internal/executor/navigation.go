package executor

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/harrison/simdem/internal/models"
)

// selectNextStep asks the user to pick one of steps. It returns nil when
// there is nothing to pick, the user quits, or input ends.
func (e *Engine) selectNextStep(s *Session, steps []models.NextStep) (*Session, error) {
	if len(steps) == 0 || e.Input == nil {
		return nil, nil
	}

	e.Presenter.Instruction("Would you like to move on to one of the next steps listed above?")
	for {
		e.Presenter.Instruction(fmt.Sprintf("Enter a value between 1 and %d or 'quit'", len(steps)))

		in, err := e.Input.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read selection: %w", err)
		}

		in = strings.TrimSpace(in)
		if isQuit(in) {
			return nil, nil
		}

		n, err := strconv.Atoi(in)
		if err != nil || n < 1 || n > len(steps) {
			continue
		}

		step := steps[n-1]
		e.Presenter.Log("debug", fmt.Sprintf("Selected next step: %+v", step))
		return s.Next(step), nil
	}
}

func isQuit(in string) bool {
	in = strings.ToLower(in)
	return in == "q" || in == "quit"
}
