package executor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/harrison/simdem/internal/source"
)

type shellCall struct {
	Document string
	Command  string
	Silent   bool
}

// FakeShell returns canned output per command
type FakeShell struct {
	outputs     map[string]string
	dynamic     map[string]func() string
	errors      map[string]error
	calls       []shellCall
	checks      int
	quitOnCheck int // return ErrQuit on this check (1-based), 0 = never
}

func NewFakeShell() *FakeShell {
	return &FakeShell{
		outputs: make(map[string]string),
		dynamic: make(map[string]func() string),
		errors:  make(map[string]error),
	}
}

func (f *FakeShell) SetOutput(cmd, output string) {
	f.outputs[cmd] = output
}

func (f *FakeShell) SetDynamic(cmd string, fn func() string) {
	f.dynamic[cmd] = fn
}

func (f *FakeShell) SetError(cmd string, err error) {
	f.errors[cmd] = err
}

func (f *FakeShell) Run(ctx context.Context, s *Session, silent bool) (string, error) {
	cmd := strings.TrimSpace(s.CurrentCommand)
	f.calls = append(f.calls, shellCall{Document: s.Location(), Command: cmd, Silent: silent})
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if fn, ok := f.dynamic[cmd]; ok {
		return fn(), f.errors[cmd]
	}
	return f.outputs[cmd], f.errors[cmd]
}

func (f *FakeShell) CheckForInteractiveCommand(ctx context.Context, s *Session) error {
	f.checks++
	if f.quitOnCheck > 0 && f.checks == f.quitOnCheck {
		return ErrQuit
	}
	return nil
}

func (f *FakeShell) Commands() []string {
	cmds := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		cmds = append(cmds, c.Command)
	}
	return cmds
}

func (f *FakeShell) Ran(cmd string) bool {
	for _, c := range f.calls {
		if c.Command == cmd {
			return true
		}
	}
	return false
}

// FakePresenter records every call as "kind:text"
type FakePresenter struct {
	events []string
	tests  int
}

func (p *FakePresenter) add(kind, text string) {
	p.events = append(p.events, kind+":"+text)
}

func (p *FakePresenter) Heading(text string)     { p.add("heading", text) }
func (p *FakePresenter) Description(text string) { p.add("description", text) }
func (p *FakePresenter) Instruction(text string) { p.add("instruction", text) }
func (p *FakePresenter) Information(text string, emphasize bool) {
	p.add("information", text)
}
func (p *FakePresenter) Warning(text string)          { p.add("warning", text) }
func (p *FakePresenter) Prompt()                      {}
func (p *FakePresenter) Clear()                       {}
func (p *FakePresenter) NextStep(label, title string) { p.add("next_step", label+"|"+title) }
func (p *FakePresenter) TestResults(expected, actual string, ratio, threshold float64) {
	p.tests++
	p.add("test_results", fmt.Sprintf("%q vs %q", expected, actual))
}
func (p *FakePresenter) Log(level, message string) {}

func (p *FakePresenter) Count(kind string) int {
	n := 0
	for _, e := range p.events {
		if strings.HasPrefix(e, kind+":") {
			n++
		}
	}
	return n
}

func (p *FakePresenter) CountEvent(kind, text string) int {
	n := 0
	for _, e := range p.events {
		if e == kind+":"+text {
			n++
		}
	}
	return n
}

func (p *FakePresenter) Has(kind, substr string) bool {
	for _, e := range p.events {
		if strings.HasPrefix(e, kind+":") && strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// FakeInput replays lines and then returns io.EOF
type FakeInput struct {
	lines []string
	reads int
}

func (in *FakeInput) ReadLine() (string, error) {
	if in.reads >= len(in.lines) {
		return "", io.EOF
	}
	line := in.lines[in.reads]
	in.reads++
	return line, nil
}

// MemSource serves documents from memory keyed by dir/filename
type MemSource struct {
	docs  map[string]string
	loads []string
}

func NewMemSource(docs map[string]string) *MemSource {
	return &MemSource{docs: docs}
}

func (m *MemSource) Load(ctx context.Context, dir, filename string, testing bool) ([]string, error) {
	loc := filepath.Join(dir, filename)
	m.loads = append(m.loads, loc)
	doc, ok := m.docs[loc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrMissingDocument, loc)
	}
	return source.SplitLines(doc), nil
}

type fakeVariables map[string][]string

func (v fakeVariables) FindUnboundVariables(ctx context.Context, command string) []string {
	return v[strings.TrimSpace(command)]
}
