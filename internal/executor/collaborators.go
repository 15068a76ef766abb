package executor

import (
	"context"

	"github.com/harrison/simdem/internal/environment"
)

// Shell executes s.CurrentCommand and returns its combined output. When
// silent is set nothing is echoed to the user.
type Shell interface {
	Run(ctx context.Context, s *Session, silent bool) (string, error)
	// CheckForInteractiveCommand pauses for the user and handles anything
	// they type before the walk continues. It returns ErrQuit to stop.
	CheckForInteractiveCommand(ctx context.Context, s *Session) error
}

// Presenter renders document content and run feedback.
type Presenter interface {
	Heading(text string)
	Description(text string)
	Instruction(text string)
	Information(text string, emphasize bool)
	Warning(text string)
	Prompt()
	Clear()
	NextStep(label, title string)
	TestResults(expected, actual string, ratio, threshold float64)
	Log(level, message string)
}

// VariableWarner is implemented by presenters with a dedicated rendering
// for unbound variables. Other presenters get a plain Warning.
type VariableWarner interface {
	UnboundVariables(names []string)
}

// Input supplies lines typed by the user. io.EOF ends navigation.
type Input interface {
	ReadLine() (string, error)
}

// DocumentSource loads the raw lines of a document.
type DocumentSource interface {
	Load(ctx context.Context, dir, filename string, testing bool) ([]string, error)
}

// VariableLookup reports variables a command references that have no value.
type VariableLookup interface {
	FindUnboundVariables(ctx context.Context, command string) []string
}

// EnvironmentApplier is implemented by shells that can export a document's
// environment before its commands run.
type EnvironmentApplier interface {
	ApplyEnvironment(ctx context.Context, env *environment.Environment) error
}

// EnvironmentLoader returns the variables for a script directory.
type EnvironmentLoader func(dir string, testing bool) (*environment.Environment, error)
