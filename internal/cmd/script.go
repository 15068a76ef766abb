package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/simdem/internal/logger"
	"github.com/harrison/simdem/internal/parser"
	"github.com/harrison/simdem/internal/source"
)

// NewScriptCommand creates the script command
func NewScriptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script [directory|document]",
		Short: "Print the commands of a document as a bash script",
		Long: `Print the executable lines of a document as a bash script.

With --fenced the commands and expected results are printed as fenced blocks
instead, which simdem reads back as the same commands and results.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			fenced, _ := cmd.Flags().GetBool("fenced")
			dir, filename := resolveTarget(args, file)

			raw, err := source.NewLoader(logger.NewNoOpLogger()).Load(cmd.Context(), dir, filename, false)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", source.Location(dir, filename), err)
			}
			lines, _ := parser.Classify(raw)

			if fenced {
				fmt.Fprint(cmd.OutOrStdout(), parser.Render(lines))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), parser.Script(lines))
			return nil
		},
	}

	cmd.Flags().String("file", "README.md", "Document to load from the directory")
	cmd.Flags().Bool("fenced", false, "Print fenced command and result blocks")

	return cmd
}
