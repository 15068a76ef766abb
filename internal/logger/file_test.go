package logger

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/simdem/internal/models"
)

// TestLogDirectoryCreation verifies the log and tests directories are created
func TestLogDirectoryCreation(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewFileLogger(filepath.Join(tmpDir, ".simdem", "logs"), "")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	for _, dir := range []string{filepath.Join(tmpDir, ".simdem", "logs"), filepath.Join(tmpDir, ".simdem", "logs", "tests")} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

// TestLatestSymlink verifies latest.log points to the newest run log
func TestLatestSymlink(t *testing.T) {
	logDir := t.TempDir()

	logger, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("failed to read symlink: %v", err)
	}
	if target != filepath.Base(logger.RunFile()) {
		t.Errorf("latest.log -> %s, want %s", target, filepath.Base(logger.RunFile()))
	}

	// a second logger replaces the link
	second, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("second logger error = %v", err)
	}
	defer second.Close()
	target, _ = os.Readlink(filepath.Join(logDir, "latest.log"))
	if target != filepath.Base(second.RunFile()) {
		t.Errorf("latest.log -> %s, want %s", target, filepath.Base(second.RunFile()))
	}
}

func readRunLog(t *testing.T, fl *FileLogger) string {
	t.Helper()
	data, err := os.ReadFile(fl.RunFile())
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	return string(data)
}

func TestFileLoggerContent(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	defer logger.Close()

	logger.LogDebug("hidden debug")
	logger.LogInfo("visible info")
	logger.LogRunStart("/docs/README.md", "test")
	logger.LogTestResult(models.TestResult{Command: "echo hi\n", Ratio: 1, Threshold: 0.66, Passed: true})
	logger.LogSummary(models.RunSummary{RunID: "abc", Document: "/docs/README.md", Mode: "test", Passed: 1})

	out := readRunLog(t, logger)
	for _, want := range []string{
		"=== SimDem Run Log ===",
		"[INFO] visible info",
		"Running /docs/README.md (mode: test)",
		"Test echo hi: PASS (ratio 1.0000, threshold 0.66)",
		"Run ID:       abc",
		"Status:       SUCCESS (1/1 tests passed)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in run log:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden debug") {
		t.Error("debug message should be filtered at info level")
	}
}

func TestFileLoggerFailureDetail(t *testing.T) {
	logDir := t.TempDir()
	logger, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	defer logger.Close()

	logger.LogTestResult(models.TestResult{
		Document:  "/docs/README.md",
		Command:   "echo hi\n",
		Expected:  "hello\n",
		Actual:    "hi\n",
		Ratio:     0.5,
		Threshold: math.NaN(),
	})

	data, err := os.ReadFile(filepath.Join(logDir, "tests", "failure-1.log"))
	if err != nil {
		t.Fatalf("expected failure detail file: %v", err)
	}
	detail := string(data)
	for _, want := range []string{"Failed test in /docs/README.md", "Threshold: invalid", "Expected:\nhello", "Actual:\nhi", "--- expected", "+++ actual"} {
		if !strings.Contains(detail, want) {
			t.Errorf("expected %q in detail:\n%s", want, detail)
		}
	}
	if !strings.Contains(readRunLog(t, logger), "FAIL (ratio 0.5000, threshold invalid)") {
		t.Error("expected failure line in run log")
	}
}

func TestFileLoggerClose(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	logger.LogInfo("after close")
}
