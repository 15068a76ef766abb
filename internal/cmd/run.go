package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/simdem/internal/config"
	"github.com/harrison/simdem/internal/console"
	"github.com/harrison/simdem/internal/environment"
	"github.com/harrison/simdem/internal/executor"
	"github.com/harrison/simdem/internal/history"
	"github.com/harrison/simdem/internal/logger"
	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/report"
	"github.com/harrison/simdem/internal/shell"
	"github.com/harrison/simdem/internal/source"
	"github.com/harrison/simdem/internal/terminal"
)

// NewTutorialCommand creates the tutorial command
func NewTutorialCommand() *cobra.Command {
	return newModeCommand(models.ModeTutorial,
		"Walk through a document interactively",
		`Show the document's prose and run each command after you press enter.

While waiting you can type:
  q         quit
  b         open a prompt to run your own commands
  !<cmd>    run a single command
  h         help`)
}

// NewDemoCommand creates the demo command
func NewDemoCommand() *cobra.Command {
	return newModeCommand(models.ModeDemo,
		"Present a document as a live demo",
		`Type each command as if a presenter were at the keyboard. Headings and
descriptions are not shown. Press enter to run the next command.`)
}

// NewTestCommand creates the test command
func NewTestCommand() *cobra.Command {
	cmd := newModeCommand(models.ModeTest,
		"Run a document unattended and grade its results",
		`Run every command without waiting for input and compare the output of
each result block with what the commands printed. The run stops at the first
failure unless --no-fast-fail is given; a stopped run exits with status 1.

In test mode a test_plan.txt in the document directory lists the documents to
run, one per line. Results are recorded in the history database and, with
--report, appended to a JSON report.

Examples:
  simdem test docs/quickstart
  simdem test --no-fast-fail --report out/report.json docs
  simdem test https://example.com/tutorials/intro/README.md`)
	cmd.Flags().Bool("no-fast-fail", false, "Keep running after a failed test")
	return cmd
}

// NewLearnCommand creates the learn command
func NewLearnCommand() *cobra.Command {
	return newModeCommand(models.ModeLearn,
		"Type each command of a document yourself",
		`Show the document and ask you to type each command. Press enter on an
empty line to have the command typed for you.`)
}

func newModeCommand(mode, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   mode + " [directory|document]",
		Short: short,
		Long:  long,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, args, mode)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .simdem/config.yaml)")
	cmd.Flags().String("file", "", "Document to load from each directory (default: README.md)")
	cmd.Flags().Bool("fast", false, "Do not simulate typing")
	cmd.Flags().Bool("debug", false, "Dump classified lines and similarity scores")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().String("log-level", "", "Console log level (trace, debug, info, warn, error)")
	cmd.Flags().String("command-timeout", "", "Maximum time per command (e.g., 30s, 5m)")
	cmd.Flags().String("report", "", "Append a JSON test report to this file")
	cmd.Flags().Bool("no-history", false, "Do not record test runs in the history database")
	cmd.Flags().Bool("isolated", false, "Run each command in its own sh -c instead of a persistent bash")
}

// loadConfig reads the config file and applies changed flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var f config.Flags
	flags := cmd.Flags()
	if flags.Changed("file") {
		v, _ := flags.GetString("file")
		f.Filename = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		v = strings.ToLower(v)
		f.LogLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		f.LogDir = &v
	}
	if flags.Changed("debug") {
		v, _ := flags.GetBool("debug")
		f.Debug = &v
	}
	if flags.Changed("command-timeout") {
		s, _ := flags.GetString("command-timeout")
		v, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid command-timeout format %q: %w", s, err)
		}
		f.CommandTimeout = &v
	}
	if flags.Changed("fast") {
		v, _ := flags.GetBool("fast")
		f.Fast = &v
	}
	if flags.Lookup("no-fast-fail") != nil && flags.Changed("no-fast-fail") {
		v, _ := flags.GetBool("no-fast-fail")
		fastFail := !v
		f.FastFail = &fastFail
	}
	if flags.Changed("isolated") {
		v, _ := flags.GetBool("isolated")
		f.Isolated = &v
	}
	if flags.Changed("report") {
		v, _ := flags.GetString("report")
		f.ReportPath = &v
	}
	if flags.Changed("no-history") {
		v, _ := flags.GetBool("no-history")
		f.NoHistory = &v
	}
	cfg.MergeWithFlags(f)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveTarget splits the command argument into a script directory and a
// document name. A directory uses the configured filename.
func resolveTarget(args []string, filename string) (string, string) {
	if len(args) == 0 {
		return ".", filename
	}
	target := args[0]
	if source.IsURL(target) {
		if strings.HasSuffix(strings.ToLower(target), ".md") {
			i := strings.LastIndex(target, "/")
			return target[:i], target[i+1:]
		}
		return strings.TrimSuffix(target, "/"), filename
	}
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return filepath.Dir(target), filepath.Base(target)
	}
	return target, filename
}

// runMode runs a document in the named mode
func runMode(cmd *cobra.Command, args []string, modeName string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, closeLog := setupLogging(cmd.ErrOrStderr(), cfg)
	defer closeLog()

	dir, filename := resolveTarget(args, cfg.Filename)
	mode := models.ModeFor(modeName)
	if mode.Testing {
		mode.FastFail = cfg.FastFail
	}

	out := cmd.OutOrStdout()
	presenter := console.New(out, log)

	workDir := "."
	if !source.IsURL(dir) {
		workDir = dir
	}
	var runner shell.Runner
	if cfg.Isolated {
		runner = shell.NewOneShotRunner(workDir, nil, cfg.CommandTimeout)
	} else {
		runner = shell.NewBash(workDir, nil, cfg.CommandTimeout)
	}

	typingDelay := cfg.TypingDelay
	if !presenter.TTY() || mode.Automated {
		typingDelay = 0
	}
	term := terminal.New(runner, terminal.Options{
		In:          cmd.InOrStdin(),
		Out:         out,
		TypingDelay: typingDelay,
		Color:       presenter.Color(),
		Logger:      log,
	})
	defer term.Close()

	engine := executor.New(term, presenter, term, source.NewLoader(log))
	engine.Variables = term
	engine.LoadEnv = environment.Load
	engine.Debug = cfg.Debug

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := executor.NewSession(dir, filename, mode)
	log.LogRunStart(session.Location(), mode.Name())

	summaries, runErr := engine.Run(ctx, session)
	for _, summary := range summaries {
		for _, result := range summary.Results {
			log.LogTestResult(result)
		}
		log.LogSummary(summary)
	}

	if mode.Testing {
		recordHistory(ctx, cfg, log, summaries)
		writeReport(ctx, cfg, log, summaries)
	}
	return runErr
}

// setupLogging fans out to the console logger and, when the log directory
// can be created, a file logger.
func setupLogging(errOut io.Writer, cfg *config.Config) (logger.Logger, func()) {
	consoleLog := logger.NewConsoleLogger(errOut, cfg.LogLevel)

	logDir, err := config.ResolvePath(cfg.LogDir)
	if err != nil {
		consoleLog.LogWarn(fmt.Sprintf("Unable to resolve log directory: %v", err))
		return consoleLog, func() {}
	}
	fileLog, err := logger.NewFileLogger(logDir, cfg.LogLevel)
	if err != nil {
		consoleLog.LogWarn(fmt.Sprintf("File logging disabled: %v", err))
		return consoleLog, func() {}
	}
	closeLog := func() {
		consoleLog.LogDebug(fmt.Sprintf("Run log written to %s", fileLog.RunFile()))
		fileLog.Close()
	}
	return logger.NewMultiLogger(consoleLog, fileLog), closeLog
}

func recordHistory(ctx context.Context, cfg *config.Config, log logger.Logger, summaries []models.RunSummary) {
	if !cfg.History.Enabled || len(summaries) == 0 {
		return
	}
	dbPath, err := config.ResolvePath(cfg.History.DBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("Unable to resolve history database: %v", err))
		return
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("Unable to open history database: %v", err))
		return
	}
	defer store.Close()

	// recording must survive an interrupted run
	ctx = context.WithoutCancel(ctx)
	for _, summary := range summaries {
		if _, err := store.RecordRun(ctx, summary); err != nil {
			log.LogWarn(fmt.Sprintf("Unable to record run of %s: %v", summary.Document, err))
			return
		}
	}
	log.LogDebug(fmt.Sprintf("Recorded %d run(s) in %s", len(summaries), store.Path()))
}

func writeReport(ctx context.Context, cfg *config.Config, log logger.Logger, summaries []models.RunSummary) {
	if cfg.ReportPath == "" {
		return
	}
	if err := report.Append(context.WithoutCancel(ctx), cfg.ReportPath, summaries); err != nil {
		log.LogError(fmt.Sprintf("Unable to write report: %v", err))
		return
	}
	log.LogInfo(fmt.Sprintf("Report written to %s", cfg.ReportPath))
}
