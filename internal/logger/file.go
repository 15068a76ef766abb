package logger

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/similarity"
)

// FileLogger logs run events to files in .simdem/logs/.
// It creates a timestamped log per invocation, a detail file per failed
// test under tests/, and maintains a latest.log symlink pointing to the
// most recent run.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	testsDir string
	logLevel string
	failures int
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir. Messages below
// logLevel are dropped; an empty level means info.
func NewFileLogger(logDir, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	testsDir := filepath.Join(logDir, "tests")
	if err := os.MkdirAll(testsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tests directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		testsDir: testsDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== SimDem Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !shouldLog(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogRunStart logs the document about to run at INFO level.
func (fl *FileLogger) LogRunStart(document, mode string) {
	if !shouldLog(fl.logLevel, "info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Running %s (mode: %s)\n", timestamp(), document, mode))
}

// LogTestResult records a graded block in the run log. Failed blocks also
// get a detail file in tests/ with the expected and actual text and a diff.
func (fl *FileLogger) LogTestResult(result models.TestResult) {
	status := "PASS"
	if !result.Passed {
		status = "FAIL"
	}
	if shouldLog(fl.logLevel, "info") {
		fl.writeRunLog(fmt.Sprintf("[%s] Test %s: %s (ratio %.4f, threshold %s)\n",
			timestamp(), shortCommand(result.Command), status, result.Ratio, formatThreshold(result.Threshold)))
	}
	if !result.Passed {
		if err := fl.writeFailure(result); err != nil {
			fl.LogError(err.Error())
		}
	}
}

func (fl *FileLogger) writeFailure(result models.TestResult) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	fl.failures++
	path := filepath.Join(fl.testsDir, fmt.Sprintf("failure-%d.log", fl.failures))

	var b strings.Builder
	fmt.Fprintf(&b, "=== Failed test in %s ===\n", result.Document)
	fmt.Fprintf(&b, "Ratio: %.4f\n", result.Ratio)
	fmt.Fprintf(&b, "Threshold: %s\n\n", formatThreshold(result.Threshold))
	fmt.Fprintf(&b, "Command:\n%s\n", result.Command)
	fmt.Fprintf(&b, "Expected:\n%s\n", result.Expected)
	fmt.Fprintf(&b, "Actual:\n%s\n", result.Actual)
	if diff := similarity.UnifiedDiff(result.Expected, result.Actual); diff != "" {
		fmt.Fprintf(&b, "Diff:\n%s\n", diff)
	}
	fmt.Fprintf(&b, "Recorded at: %s\n", time.Now().Format(time.RFC3339))

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write test failure log: %w", err)
	}
	return nil
}

func formatThreshold(t float64) string {
	if math.IsNaN(t) {
		return "invalid"
	}
	return fmt.Sprintf("%.2f", t)
}

// LogSummary logs the counters of a finished document at INFO level.
func (fl *FileLogger) LogSummary(summary models.RunSummary) {
	if !shouldLog(fl.logLevel, "info") {
		return
	}

	ts := timestamp()
	status := "SUCCESS"
	if summary.Failed > 0 {
		status = "FAILED"
	}

	fl.writeRunLog(fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Run ID:       %s\n"+
			"[%s] Document:     %s\n"+
			"[%s] Mode:         %s\n"+
			"[%s] Passed:       %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s (%d/%d tests passed)\n",
		ts,
		ts, summary.RunID,
		ts, summary.Document,
		ts, summary.Mode,
		ts, summary.Passed,
		ts, summary.Failed,
		ts, summary.Duration.Seconds(),
		ts, status, summary.Passed, summary.Total(),
	))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
