package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrShellExited is returned when the bash process ends while a command is
// running, for example after `exit` or a syntax error.
var ErrShellExited = errors.New("shell exited")

// Bash keeps one bash process alive across commands so that `cd`, exported
// variables and shell functions persist the way they would in a terminal.
// Stdout and stderr share a single pipe. The end of each command is found
// by a sentinel line that carries its exit status.
type Bash struct {
	Path    string        // bash binary, default "bash"
	Dir     string        // starting directory
	Env     []string      // extra KEY=VALUE pairs
	Timeout time.Duration // per-command timeout, 0 = none

	mu       sync.Mutex
	sentinel string
	proc     *bashProcess
	exitCode int
}

type bashProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *os.File
	chunks chan string
	done   chan struct{}
}

// NewBash creates a persistent shell. The process starts on first use.
func NewBash(dir string, env []string, timeout time.Duration) *Bash {
	return &Bash{
		Path:     "bash",
		Dir:      dir,
		Env:      env,
		Timeout:  timeout,
		sentinel: "__SIMDEM_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "__",
	}
}

// Run executes command and returns everything it wrote to stdout and
// stderr. A non-zero exit status is not an error; see ExitCode.
func (b *Bash) Run(ctx context.Context, command string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if strings.TrimSpace(command) == "" {
		return "", nil
	}

	if b.proc == nil {
		if err := b.start(); err != nil {
			return "", err
		}
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	script := fmt.Sprintf("{\n%s\n} < /dev/null\nprintf '%%s %%d\\n' %s $?\n",
		strings.TrimRight(command, "\n"), b.sentinel)
	if _, err := io.WriteString(b.proc.stdin, script); err != nil {
		b.stop()
		return "", fmt.Errorf("write command to shell: %w", err)
	}

	var buf strings.Builder
	for {
		select {
		case <-ctx.Done():
			b.stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return buf.String(), &TimeoutError{Command: command, Duration: b.Timeout}
			}
			return buf.String(), ctx.Err()

		case chunk, ok := <-b.proc.chunks:
			if !ok {
				b.stop()
				return buf.String(), ErrShellExited
			}
			buf.WriteString(chunk)
			if out, code, found := b.split(buf.String()); found {
				b.exitCode = code
				return out, nil
			}
		}
	}
}

// ExitCode returns the exit status of the last completed command.
func (b *Bash) ExitCode() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exitCode
}

// HasValue reports whether name expands to a non-empty value in the shell.
func (b *Bash) HasValue(ctx context.Context, name string) bool {
	out, err := b.Run(ctx, fmt.Sprintf(`printf '%%s' "${%s}"`, name))
	return err == nil && out != ""
}

// Setenv exports name=value into the running shell.
func (b *Bash) Setenv(ctx context.Context, name, value string) error {
	_, err := b.Run(ctx, fmt.Sprintf("export %s=%s", name, Quote(value)))
	return err
}

// Close terminates the shell process.
func (b *Bash) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.proc == nil {
		return nil
	}
	_, _ = io.WriteString(b.proc.stdin, "exit\n")
	b.stop()
	return nil
}

// split looks for the sentinel line and returns the output preceding it.
func (b *Bash) split(s string) (string, int, bool) {
	idx := strings.Index(s, b.sentinel+" ")
	if idx < 0 {
		return "", 0, false
	}
	rest := s[idx+len(b.sentinel)+1:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", 0, false
	}
	code, err := strconv.Atoi(rest[:nl])
	if err != nil {
		code = -1
	}
	return s[:idx], code, true
}

func (b *Bash) start() error {
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create shell pipe: %w", err)
	}

	cmd := exec.Command(b.Path, "--noprofile", "--norc")
	cmd.Dir = b.Dir
	cmd.Env = append(os.Environ(), b.Env...)
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		r.Close()
		w.Close()
		return fmt.Errorf("open shell stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return fmt.Errorf("start %s: %w", b.Path, err)
	}
	w.Close()

	p := &bashProcess{
		cmd:    cmd,
		stdin:  stdin,
		out:    r,
		chunks: make(chan string, 16),
		done:   make(chan struct{}),
	}
	go p.read()
	b.proc = p
	return nil
}

func (p *bashProcess) read() {
	defer close(p.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := p.out.Read(buf)
		if n > 0 {
			select {
			case p.chunks <- string(buf[:n]):
			case <-p.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// stop kills the process group and releases the pipe. The next Run starts a
// fresh shell.
func (b *Bash) stop() {
	p := b.proc
	if p == nil {
		return
	}
	b.proc = nil

	close(p.done)
	p.stdin.Close()
	killProcessGroup(p.cmd)
	_ = p.cmd.Wait()
	p.out.Close()
	for range p.chunks {
	}
}

// Quote returns s as a single-quoted shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
