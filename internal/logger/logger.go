// Package logger provides leveled logging for simdem runs.
//
// ConsoleLogger writes timestamped lines to a terminal, FileLogger keeps a
// per-run log under .simdem/logs, and MultiLogger fans out to several of
// them. All implementations are safe for concurrent use.
package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/simdem/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger records run progress.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRunStart(document, mode string)
	LogTestResult(result models.TestResult)
	LogSummary(summary models.RunSummary)
}

// Log dispatches message to the method matching level. Unknown levels log
// at info.
func Log(l Logger, level, message string) {
	switch normalizeLogLevel(level) {
	case "trace":
		l.LogTrace(message)
	case "debug":
		l.LogDebug(message)
	case "warn":
		l.LogWarn(message)
	case "error":
		l.LogError(message)
	default:
		l.LogInfo(message)
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if ValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func shouldLog(configured, message string) bool {
	return logLevelToInt(message) >= logLevelToInt(configured)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

func shortCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if i := strings.IndexByte(cmd, '\n'); i >= 0 {
		cmd = cmd[:i] + " ..."
	}
	return cmd
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string)                 {}
func (n *NoOpLogger) LogDebug(string)                 {}
func (n *NoOpLogger) LogInfo(string)                  {}
func (n *NoOpLogger) LogWarn(string)                  {}
func (n *NoOpLogger) LogError(string)                 {}
func (n *NoOpLogger) LogRunStart(string, string)      {}
func (n *NoOpLogger) LogTestResult(models.TestResult) {}
func (n *NoOpLogger) LogSummary(models.RunSummary)    {}

// MultiLogger forwards every call to each of its loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogTrace(msg string) {
	for _, l := range m.loggers {
		l.LogTrace(msg)
	}
}

func (m *MultiLogger) LogDebug(msg string) {
	for _, l := range m.loggers {
		l.LogDebug(msg)
	}
}

func (m *MultiLogger) LogInfo(msg string) {
	for _, l := range m.loggers {
		l.LogInfo(msg)
	}
}

func (m *MultiLogger) LogWarn(msg string) {
	for _, l := range m.loggers {
		l.LogWarn(msg)
	}
}

func (m *MultiLogger) LogError(msg string) {
	for _, l := range m.loggers {
		l.LogError(msg)
	}
}

func (m *MultiLogger) LogRunStart(document, mode string) {
	for _, l := range m.loggers {
		l.LogRunStart(document, mode)
	}
}

func (m *MultiLogger) LogTestResult(result models.TestResult) {
	for _, l := range m.loggers {
		l.LogTestResult(result)
	}
}

func (m *MultiLogger) LogSummary(summary models.RunSummary) {
	for _, l := range m.loggers {
		l.LogSummary(summary)
	}
}
