// Package console renders documents and run feedback on a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/simdem/internal/display"
	"github.com/harrison/simdem/internal/logger"
	"github.com/harrison/simdem/internal/similarity"
)

const clearScreen = "\x1b[2J\x1b[H"

// Console is the terminal Presenter.
type Console struct {
	out    io.Writer
	tty    bool
	color  bool
	logger logger.Logger
	mu     sync.Mutex

	heading     *color.Color
	instruction *color.Color
	emphasis    *color.Color
	prompt      *color.Color
	title       *color.Color
}

// New creates a Console writing to out. Screen clearing and color are only
// used when out is a terminal.
func New(out io.Writer, log logger.Logger) *Console {
	tty := IsTerminal(out)
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := &Console{
		out:         out,
		tty:         tty,
		color:       tty && !color.NoColor,
		logger:      log,
		heading:     color.New(color.FgCyan, color.Bold),
		instruction: color.New(color.FgYellow),
		emphasis:    color.New(color.Bold),
		prompt:      color.New(color.FgGreen, color.Bold),
		title:       color.New(color.FgHiWhite, color.Bold),
	}
	for _, col := range []*color.Color{c.heading, c.instruction, c.emphasis, c.prompt, c.title} {
		if c.color {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TTY reports whether the console writes to a terminal.
func (c *Console) TTY() bool {
	return c.tty
}

// Color reports whether the console emits color.
func (c *Console) Color() bool {
	return c.color
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.out
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, s)
}

func line(text string) string {
	return strings.TrimRight(text, "\r\n") + "\n"
}

// Heading prints a heading line in bold.
func (c *Console) Heading(text string) {
	c.write("\n" + c.heading.Sprint(strings.TrimRight(text, "\r\n")) + "\n\n")
}

// Description prints document prose as is.
func (c *Console) Description(text string) {
	c.write(text)
}

// Instruction prints a line telling the reader what to do.
func (c *Console) Instruction(text string) {
	c.write(c.instruction.Sprint(strings.TrimRight(text, "\r\n")) + "\n")
}

// Information prints a status line, highlighted when emphasize is set.
func (c *Console) Information(text string, emphasize bool) {
	if emphasize {
		c.write(c.emphasis.Sprint(strings.TrimRight(text, "\r\n")) + "\n")
		return
	}
	c.write(line(text))
}

// Warning shows a boxed warning and logs it.
func (c *Console) Warning(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	display.Warning{Title: strings.TrimSpace(text)}.Display(c.out, c.color)
	c.logger.LogWarn(strings.TrimSpace(text))
}

// UnboundVariables shows the boxed warning for variables without a value.
func (c *Console) UnboundVariables(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	display.UnboundVariables(names).Display(c.out, c.color)
	c.logger.LogWarn(fmt.Sprintf("Unbound variables: %s", strings.Join(names, ", ")))
}

// Prompt prints the shell prompt shown before a command.
func (c *Console) Prompt() {
	c.write(c.prompt.Sprint("$ "))
}

// Clear clears the screen on a terminal and is a no-op otherwise.
func (c *Console) Clear() {
	if c.tty {
		c.write(clearScreen)
	}
}

// NextStep prints one entry of the next steps list.
func (c *Console) NextStep(label, title string) {
	c.write(label + c.title.Sprint(title) + "\n")
}

// TestResults shows why a graded block failed.
func (c *Console) TestResults(expected, actual string, ratio, threshold float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	display.TestFailure{
		Expected:  expected,
		Actual:    actual,
		Ratio:     ratio,
		Threshold: threshold,
		Diff:      similarity.UnifiedDiff(expected, actual),
	}.Display(c.out, c.color)
}

// Log forwards a message to the logger at the named level.
func (c *Console) Log(level, message string) {
	logger.Log(c.logger, level, message)
}
