package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the config file nor a flag sets a value
const (
	DefaultFilename    = "README.md"
	DefaultTypingDelay = 30 * time.Millisecond
	dirName            = ".simdem"
	configFile         = "config.yaml"
)

// HistoryConfig controls the run history database
type HistoryConfig struct {
	// Enabled records test runs in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite database
	DBPath string `yaml:"db_path"`
}

// Config represents simdem configuration options
type Config struct {
	// Filename is the document loaded from each script directory
	Filename string `yaml:"filename"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// Debug dumps classified lines and similarity scores
	Debug bool `yaml:"debug"`

	// CommandTimeout bounds every shell command (0 = no limit)
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// TypingDelay is the pause between characters when simulating typing
	TypingDelay time.Duration `yaml:"typing_delay"`

	// FastFail stops a test run at the first failed test
	FastFail bool `yaml:"fast_fail"`

	// Isolated runs each command in its own sh -c instead of a persistent bash
	Isolated bool `yaml:"isolated"`

	// ReportPath, when set, receives a JSON report after every test run
	ReportPath string `yaml:"report_path"`

	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Filename:       DefaultFilename,
		LogLevel:       "info",
		LogDir:         filepath.Join(dirName, "logs"),
		CommandTimeout: 0,
		TypingDelay:    DefaultTypingDelay,
		FastFail:       true,
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(dirName, "history.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// durations are strings in YAML; pointers tell unset apart from false
	type yamlHistory struct {
		Enabled *bool   `yaml:"enabled"`
		DBPath  *string `yaml:"db_path"`
	}
	type yamlConfig struct {
		Filename       string       `yaml:"filename"`
		LogLevel       string       `yaml:"log_level"`
		LogDir         string       `yaml:"log_dir"`
		Debug          *bool        `yaml:"debug"`
		CommandTimeout string       `yaml:"command_timeout"`
		TypingDelay    string       `yaml:"typing_delay"`
		FastFail       *bool        `yaml:"fast_fail"`
		Isolated       *bool        `yaml:"isolated"`
		ReportPath     string       `yaml:"report_path"`
		History        *yamlHistory `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Filename != "" {
		cfg.Filename = yamlCfg.Filename
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Debug != nil {
		cfg.Debug = *yamlCfg.Debug
	}
	if yamlCfg.CommandTimeout != "" {
		d, err := time.ParseDuration(yamlCfg.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid command_timeout format %q: %w", yamlCfg.CommandTimeout, err)
		}
		cfg.CommandTimeout = d
	}
	if yamlCfg.TypingDelay != "" {
		d, err := time.ParseDuration(yamlCfg.TypingDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid typing_delay format %q: %w", yamlCfg.TypingDelay, err)
		}
		cfg.TypingDelay = d
	}
	if yamlCfg.FastFail != nil {
		cfg.FastFail = *yamlCfg.FastFail
	}
	if yamlCfg.Isolated != nil {
		cfg.Isolated = *yamlCfg.Isolated
	}
	if yamlCfg.ReportPath != "" {
		cfg.ReportPath = yamlCfg.ReportPath
	}
	if h := yamlCfg.History; h != nil {
		if h.Enabled != nil {
			cfg.History.Enabled = *h.Enabled
		}
		if h.DBPath != nil {
			cfg.History.DBPath = *h.DBPath
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads .simdem/config.yaml in the specified directory
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, dirName, configFile))
}

// Flags holds command-line overrides. Nil fields were not set.
type Flags struct {
	Filename       *string
	LogLevel       *string
	LogDir         *string
	Debug          *bool
	CommandTimeout *time.Duration
	Fast           *bool
	FastFail       *bool
	Isolated       *bool
	ReportPath     *string
	NoHistory      *bool
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(f Flags) {
	if f.Filename != nil {
		c.Filename = *f.Filename
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
		if c.Debug {
			c.LogLevel = "debug"
		}
	}
	if f.CommandTimeout != nil {
		c.CommandTimeout = *f.CommandTimeout
	}
	if f.Fast != nil && *f.Fast {
		c.TypingDelay = 0
	}
	if f.FastFail != nil {
		c.FastFail = *f.FastFail
	}
	if f.Isolated != nil {
		c.Isolated = *f.Isolated
	}
	if f.ReportPath != nil {
		c.ReportPath = *f.ReportPath
	}
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must be >= 0, got %v", c.CommandTimeout)
	}
	if c.TypingDelay < 0 {
		return fmt.Errorf("typing_delay must be >= 0, got %v", c.TypingDelay)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}

// GetSimdemHome returns the directory holding simdem state.
// SIMDEM_HOME wins; otherwise .simdem under the working directory.
// The directory is created if it doesn't exist.
func GetSimdemHome() (string, error) {
	home := os.Getenv("SIMDEM_HOME")
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create simdem home directory: %w", err)
	}
	return home, nil
}

// ResolvePath anchors a relative state path (.simdem/...) in the simdem
// home so SIMDEM_HOME relocates logs and history together.
func ResolvePath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	rel, err := filepath.Rel(dirName, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path, nil
	}
	home, err := GetSimdemHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, rel), nil
}
