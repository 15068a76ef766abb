package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Filename != "README.md" {
		t.Errorf("Filename = %q, want %q", cfg.Filename, "README.md")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogDir != filepath.Join(".simdem", "logs") {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, ".simdem/logs")
	}
	if cfg.CommandTimeout != 0 {
		t.Errorf("CommandTimeout = %v, want 0", cfg.CommandTimeout)
	}
	if cfg.TypingDelay != DefaultTypingDelay {
		t.Errorf("TypingDelay = %v, want %v", cfg.TypingDelay, DefaultTypingDelay)
	}
	if !cfg.FastFail {
		t.Error("FastFail = false, want true")
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `filename: demo.md
log_level: debug
log_dir: /tmp/logs
debug: true
command_timeout: 2m
typing_delay: 5ms
fast_fail: false
isolated: true
report_path: out/report.json
history:
  enabled: false
  db_path: /tmp/history.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Filename != "demo.md" {
		t.Errorf("Filename = %q, want %q", cfg.Filename, "demo.md")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogDir != "/tmp/logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/tmp/logs")
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.CommandTimeout != 2*time.Minute {
		t.Errorf("CommandTimeout = %v, want 2m", cfg.CommandTimeout)
	}
	if cfg.TypingDelay != 5*time.Millisecond {
		t.Errorf("TypingDelay = %v, want 5ms", cfg.TypingDelay)
	}
	if cfg.FastFail {
		t.Error("FastFail = true, want false")
	}
	if !cfg.Isolated {
		t.Error("Isolated = false, want true")
	}
	if cfg.ReportPath != "out/report.json" {
		t.Errorf("ReportPath = %q, want %q", cfg.ReportPath, "out/report.json")
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.DBPath != "/tmp/history.db" {
		t.Errorf("History.DBPath = %q, want %q", cfg.History.DBPath, "/tmp/history.db")
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q (default)", cfg.LogLevel, "info")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
command_timeout: [this is not valid
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() expected error for invalid YAML, got nil")
	}
}

// TestLoadConfigPartialValues tests that partial config merges with defaults
func TestLoadConfigPartialValues(t *testing.T) {
	path := writeConfig(t, `log_level: warn
history:
  db_path: runs.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.History.DBPath != "runs.db" {
		t.Errorf("History.DBPath = %q, want %q", cfg.History.DBPath, "runs.db")
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled should keep its default when only db_path is set")
	}
	if !cfg.FastFail {
		t.Error("FastFail should keep its default")
	}
	if cfg.Filename != DefaultFilename {
		t.Errorf("Filename = %q, want %q (default)", cfg.Filename, DefaultFilename)
	}
}

func TestLoadConfigDurations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", content: "command_timeout: 30s\n", want: 30 * time.Second},
		{name: "compound", content: "command_timeout: 1h30m\n", want: 90 * time.Minute},
		{name: "zero", content: "command_timeout: 0s\n", want: 0},
		{name: "no unit", content: "command_timeout: \"30\"\n", wantErr: true},
		{name: "garbage", content: "command_timeout: soon\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.CommandTimeout != tt.want {
				t.Errorf("CommandTimeout = %v, want %v", cfg.CommandTimeout, tt.want)
			}
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".simdem"), 0755); err != nil {
		t.Fatal(err)
	}
	content := []byte("filename: script.md\n")
	if err := os.WriteFile(filepath.Join(dir, ".simdem", "config.yaml"), content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.Filename != "script.md" {
		t.Errorf("Filename = %q, want %q", cfg.Filename, "script.md")
	}

	cfg, err = LoadConfigFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigFromDir() on empty dir error = %v", err)
	}
	if cfg.Filename != DefaultFilename {
		t.Errorf("Filename = %q, want default", cfg.Filename)
	}
}

func TestEmptyConfigFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "info" || cfg.TypingDelay != DefaultTypingDelay {
		t.Errorf("empty file should yield defaults, got %+v", cfg)
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	filename := "intro.md"
	logDir := "/var/log/simdem"
	debug := true
	timeout := 10 * time.Second
	fast := true
	fastFail := false
	isolated := true
	report := "report.json"
	noHistory := true

	cfg.MergeWithFlags(Flags{
		Filename:       &filename,
		LogDir:         &logDir,
		Debug:          &debug,
		CommandTimeout: &timeout,
		Fast:           &fast,
		FastFail:       &fastFail,
		Isolated:       &isolated,
		ReportPath:     &report,
		NoHistory:      &noHistory,
	})

	if cfg.Filename != filename {
		t.Errorf("Filename = %q, want %q", cfg.Filename, filename)
	}
	if cfg.LogDir != logDir {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, logDir)
	}
	if !cfg.Debug || cfg.LogLevel != "debug" {
		t.Errorf("Debug = %v, LogLevel = %q, want debug on", cfg.Debug, cfg.LogLevel)
	}
	if cfg.CommandTimeout != timeout {
		t.Errorf("CommandTimeout = %v, want %v", cfg.CommandTimeout, timeout)
	}
	if cfg.TypingDelay != 0 {
		t.Errorf("TypingDelay = %v, want 0 with --fast", cfg.TypingDelay)
	}
	if cfg.FastFail {
		t.Error("FastFail = true, want false")
	}
	if !cfg.Isolated {
		t.Error("Isolated = false, want true")
	}
	if cfg.ReportPath != report {
		t.Errorf("ReportPath = %q, want %q", cfg.ReportPath, report)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false with --no-history")
	}
}

func TestMergeWithFlagsNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeWithFlags(Flags{})

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("MergeWithFlags(Flags{}) changed config: got %+v, want %+v", cfg, want)
	}
}

func TestMergeWithFlagsFalseValuesKeepConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	fast := false
	noHistory := false
	debug := false

	cfg.MergeWithFlags(Flags{Fast: &fast, NoHistory: &noHistory, Debug: &debug})

	if cfg.TypingDelay != DefaultTypingDelay {
		t.Errorf("TypingDelay = %v, want default", cfg.TypingDelay)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "trace level", modify: func(c *Config) { c.LogLevel = "trace" }},
		{name: "bad level", modify: func(c *Config) { c.LogLevel = "verbose" }, wantErr: true},
		{name: "upper case level", modify: func(c *Config) { c.LogLevel = "INFO" }, wantErr: true},
		{name: "empty filename", modify: func(c *Config) { c.Filename = "" }, wantErr: true},
		{name: "negative timeout", modify: func(c *Config) { c.CommandTimeout = -time.Second }, wantErr: true},
		{name: "negative typing delay", modify: func(c *Config) { c.TypingDelay = -1 }, wantErr: true},
		{name: "history without path", modify: func(c *Config) { c.History.DBPath = "" }, wantErr: true},
		{name: "disabled history without path", modify: func(c *Config) {
			c.History.Enabled = false
			c.History.DBPath = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSimdemHome(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "state")
	t.Setenv("SIMDEM_HOME", custom)

	home, err := GetSimdemHome()
	if err != nil {
		t.Fatalf("GetSimdemHome() error = %v", err)
	}
	if home != custom {
		t.Errorf("GetSimdemHome() = %q, want %q", home, custom)
	}
	if _, err := os.Stat(home); err != nil {
		t.Errorf("home directory not created: %v", err)
	}
}

func TestGetSimdemHomeDefaultsToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	t.Setenv("SIMDEM_HOME", "")

	home, err := GetSimdemHome()
	if err != nil {
		t.Fatalf("GetSimdemHome() error = %v", err)
	}
	wd, _ := os.Getwd()
	if want := filepath.Join(wd, ".simdem"); home != want {
		t.Errorf("GetSimdemHome() = %q, want %q", home, want)
	}
}

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SIMDEM_HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "/abs/history.db", want: "/abs/history.db"},
		{in: "elsewhere/logs", want: "elsewhere/logs"},
		{in: filepath.Join(".simdem", "logs"), want: filepath.Join(home, "logs")},
		{in: filepath.Join(".simdem", "history.db"), want: filepath.Join(home, "history.db")},
	}
	for _, tt := range tests {
		got, err := ResolvePath(tt.in)
		if err != nil {
			t.Fatalf("ResolvePath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// testChdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
