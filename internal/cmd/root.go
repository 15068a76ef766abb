package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for simdem
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simdem",
		Short: "Run markdown documents as tutorials, demos and tests",
		Long: `SimDem turns markdown documents into executable walkthroughs.

Fenced code blocks are run in a shell. Blocks introduced by "Results:" hold
the expected output, which is compared with what the commands printed.
Documents can name prerequisites, which are validated and run first, and
next steps, which are offered when the document ends.

Modes:
  tutorial  show the prose and run each command when you press enter
  demo      type each command as if by a presenter, prose hidden
  test      run every command unattended and grade the results
  learn     you type each command yourself

Configuration is loaded from .simdem/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewTutorialCommand())
	cmd.AddCommand(NewDemoCommand())
	cmd.AddCommand(NewTestCommand())
	cmd.AddCommand(NewLearnCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewScriptCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
