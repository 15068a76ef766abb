package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/harrison/simdem/internal/models"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// false when NO_COLOR is set or the stream is not a TTY
		return !color.NoColor
	}
	return false
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !shouldLog(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		level = colorLevel(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogRunStart logs the document about to run at DEBUG level.
// Format: "[HH:MM:SS] Running <document> (<mode>)"
func (cl *ConsoleLogger) LogRunStart(document, mode string) {
	if cl.writer == nil || !shouldLog(cl.logLevel, "debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		document = color.New(color.Bold).Sprint(document)
	}
	fmt.Fprintf(cl.writer, "[%s] Running %s (%s)\n", timestamp(), document, mode)
}

// LogTestResult logs one graded block at DEBUG level.
// Format: "[HH:MM:SS] Test <command>: PASS|FAIL (ratio 0.95 >= 0.66)"
func (cl *ConsoleLogger) LogTestResult(result models.TestResult) {
	if cl.writer == nil || !shouldLog(cl.logLevel, "debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := "FAIL"
	if result.Passed {
		status = "PASS"
	}
	if cl.colorOutput {
		if result.Passed {
			status = color.New(color.FgGreen).Sprint(status)
		} else {
			status = color.New(color.FgRed).Sprint(status)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] Test %s: %s (ratio %.2f, threshold %.2f)\n",
		timestamp(), shortCommand(result.Command), status, result.Ratio, result.Threshold)
}

// LogSummary logs the counters of a finished document at INFO level.
func (cl *ConsoleLogger) LogSummary(summary models.RunSummary) {
	if cl.writer == nil || !shouldLog(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var b strings.Builder
	if cl.colorOutput {
		fmt.Fprintf(&b, "[%s] %s\n", ts, color.New(color.Bold).Sprint("=== Run Summary ==="))
	} else {
		fmt.Fprintf(&b, "[%s] === Run Summary ===\n", ts)
	}
	fmt.Fprintf(&b, "[%s] Document: %s (%s)\n", ts, summary.Document, summary.Mode)
	fmt.Fprintf(&b, "[%s] Tests: %s\n", ts, passBar(summary.Passed, summary.Total(), cl.colorOutput))

	failed := fmt.Sprintf("Failed: %d", summary.Failed)
	if cl.colorOutput && summary.Failed > 0 {
		failed = color.New(color.FgRed).Sprint(failed)
	}
	fmt.Fprintf(&b, "[%s] Passed: %d, %s\n", ts, summary.Passed, failed)
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration))

	io.WriteString(cl.writer, b.String())
}
