// Package terminal connects the execution engine to a user at a keyboard:
// it echoes or types commands, runs them in a shell and reads replies.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/simdem/internal/environment"
	"github.com/harrison/simdem/internal/executor"
	"github.com/harrison/simdem/internal/logger"
	"github.com/harrison/simdem/internal/shell"
)

const helpText = `Commands:
  <enter>    continue
  q, quit    stop running the document
  b, break   open a prompt to run your own commands, blank line to return
  !<cmd>     run a single command
  h, help    show this help
`

// Options configures a Terminal
type Options struct {
	In          io.Reader
	Out         io.Writer
	TypingDelay time.Duration // delay per character when simulating typing
	Color       bool
	Logger      logger.Logger
}

// Terminal implements the engine's Shell, Input and VariableLookup.
type Terminal struct {
	runner      shell.Runner
	in          *bufio.Reader
	out         io.Writer
	typingDelay time.Duration
	logger      logger.Logger
	command     *color.Color
	hint        *color.Color
}

// New creates a Terminal running commands with runner.
func New(runner shell.Runner, opts Options) *Terminal {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	in := opts.In
	if in == nil {
		in = strings.NewReader("")
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	t := &Terminal{
		runner:      runner,
		in:          bufio.NewReader(in),
		out:         out,
		typingDelay: opts.TypingDelay,
		logger:      log,
		command:     color.New(color.Bold),
		hint:        color.New(color.FgYellow),
	}
	if opts.Color {
		t.command.EnableColor()
		t.hint.EnableColor()
	} else {
		t.command.DisableColor()
		t.hint.DisableColor()
	}
	return t
}

// Run shows s.CurrentCommand, executes it and echoes its output. Silent
// runs show nothing.
func (t *Terminal) Run(ctx context.Context, s *executor.Session, silent bool) (string, error) {
	cmd := s.CurrentCommand
	if silent {
		return t.runner.Run(ctx, cmd)
	}

	switch {
	case s.Mode.Learning:
		if err := t.learn(ctx, cmd); err != nil {
			return "", err
		}
	case s.Mode.Simulate:
		if err := t.typeOut(ctx, cmd); err != nil {
			return "", err
		}
	default:
		fmt.Fprint(t.out, t.command.Sprint(ensureNewline(cmd)))
	}

	t.logger.LogDebug("Executing: " + strings.TrimSpace(cmd))
	out, err := t.runner.Run(ctx, cmd)
	io.WriteString(t.out, out)
	return out, err
}

// learn asks the user to type cmd. An empty line types it for them.
func (t *Terminal) learn(ctx context.Context, cmd string) error {
	want := normalize(cmd)
	fmt.Fprintf(t.out, "%s\n%s", t.hint.Sprint("Type the following command, or press enter to have it typed for you:"),
		t.command.Sprint(ensureNewline(cmd)))

	for {
		fmt.Fprint(t.out, "$ ")
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) || (err == nil && strings.TrimSpace(line) == "") {
			return t.typeOut(ctx, cmd)
		}
		if err != nil {
			return err
		}
		if isQuit(line) {
			return executor.ErrQuit
		}
		if normalize(line) == want {
			return nil
		}
		fmt.Fprintln(t.out, t.hint.Sprint("That is not quite it. Try again, or press enter and it will be typed for you."))
	}
}

// typeOut writes text one character at a time.
func (t *Terminal) typeOut(ctx context.Context, text string) error {
	text = ensureNewline(text)
	if t.typingDelay <= 0 {
		fmt.Fprint(t.out, t.command.Sprint(text))
		return nil
	}

	timer := time.NewTimer(t.typingDelay)
	defer timer.Stop()
	for _, r := range text {
		fmt.Fprint(t.out, t.command.Sprint(string(r)))
		timer.Reset(t.typingDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// CheckForInteractiveCommand waits for the user before the walk continues.
// Automated sessions never wait.
func (t *Terminal) CheckForInteractiveCommand(ctx context.Context, s *executor.Session) error {
	if s.Mode.Automated {
		return nil
	}

	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		switch strings.ToLower(trimmed) {
		case "":
			return nil
		case "q", "quit":
			return executor.ErrQuit
		case "h", "help", "?":
			io.WriteString(t.out, helpText)
		case "b", "break":
			if err := t.breakToShell(ctx); err != nil {
				return err
			}
		default:
			if strings.HasPrefix(trimmed, "!") {
				if err := t.runAdHoc(ctx, strings.TrimSpace(trimmed[1:])); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(t.out, t.hint.Sprint("Press enter to continue, or 'h' for help."))
		}
	}
}

func (t *Terminal) breakToShell(ctx context.Context) error {
	fmt.Fprintln(t.out, t.hint.Sprint("Enter commands to run. A blank line returns to the document."))
	for {
		fmt.Fprint(t.out, "simdem$ ")
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) || (err == nil && strings.TrimSpace(line) == "") {
			return nil
		}
		if err != nil {
			return err
		}
		if err := t.runAdHoc(ctx, line); err != nil {
			return err
		}
	}
}

func (t *Terminal) runAdHoc(ctx context.Context, cmd string) error {
	if cmd == "" {
		return nil
	}
	t.logger.LogDebug("Executing interactive command: " + cmd)
	out, err := t.runner.Run(ctx, cmd)
	io.WriteString(t.out, out)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(t.out, "%v\n", err)
	}
	return nil
}

// ReadLine returns the next line typed by the user without its newline.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// FindUnboundVariables reports variables in command without a value in
// the shell.
func (t *Terminal) FindUnboundVariables(ctx context.Context, command string) []string {
	return shell.FindUnboundVariables(ctx, t.runner, command)
}

// ApplyEnvironment exports env into the shell.
func (t *Terminal) ApplyEnvironment(ctx context.Context, env *environment.Environment) error {
	for _, name := range env.Names() {
		value, _ := env.Get(name)
		if err := t.runner.Setenv(ctx, name, value); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	if env.Len() > 0 {
		t.logger.LogDebug(fmt.Sprintf("Applied %d environment variables from %s", env.Len(), env.Dir))
	}
	return nil
}

// Close stops the shell.
func (t *Terminal) Close() error {
	return t.runner.Close()
}

func isQuit(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "q" || s == "quit"
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
