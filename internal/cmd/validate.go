package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/simdem/internal/display"
	"github.com/harrison/simdem/internal/fileutil"
	"github.com/harrison/simdem/internal/logger"
	"github.com/harrison/simdem/internal/models"
	"github.com/harrison/simdem/internal/parser"
	"github.com/harrison/simdem/internal/source"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [directory|document]",
		Short: "Check documents without running them",
		Long: `Classify a document and report what simdem would do with it:
  - Commands, result blocks and their similarity thresholds
  - Prerequisites and next steps, and whether local targets exist
  - Malformed expected_similarity annotations

With --recursive every README.md and script.md below the directory is checked.

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			recursive, _ := cmd.Flags().GetBool("recursive")
			verbose, _ := cmd.Flags().GetBool("verbose")
			dir, filename := resolveTarget(args, file)
			opts := validateOptions{recursive: recursive, verbose: verbose}
			return validateDocuments(cmd.Context(), dir, filename, opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("file", "README.md", "Document to load from the directory")
	cmd.Flags().BoolP("recursive", "r", false, "Validate every README.md and script.md below the directory")
	cmd.Flags().BoolP("verbose", "v", false, "Print every classified line")

	return cmd
}

type validateOptions struct {
	recursive bool
	verbose   bool
}

// documentReport summarizes one classified document
type documentReport struct {
	location      string
	commands      int
	results       int
	prerequisites []models.PrerequisiteStep
	nextSteps     []models.NextStep
	errs          []error
	missing       []string
}

func validateDocuments(ctx context.Context, dir, filename string, opts validateOptions, output io.Writer) error {
	loader := source.NewLoader(logger.NewNoOpLogger())

	targets := [][2]string{{dir, filename}}
	if opts.recursive && !source.IsURL(dir) {
		result, err := fileutil.FindDocuments(dir, fileutil.ScanOptions{Names: []string{"README.md", "script.md"}})
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		targets = targets[:0]
		for _, doc := range result.Documents {
			targets = append(targets, [2]string{filepath.Dir(doc.Path), filepath.Base(doc.Path)})
		}
		if len(targets) == 0 {
			fmt.Fprintf(output, "No documents found in %s\n", dir)
			return nil
		}
	}

	failed := 0
	for _, t := range targets {
		raw, err := loader.Load(ctx, t[0], t[1], false)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", source.Location(t[0], t[1]), err)
		}
		lines, errs := parser.Classify(raw)
		rep := summarize(source.Location(t[0], t[1]), t[0], lines, errs)
		printDocumentReport(output, rep, lines, opts.verbose)
		if len(rep.errs) > 0 || len(rep.missing) > 0 {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("validation failed: %d of %d document(s) have errors", failed, len(targets))
	}
	return nil
}

func summarize(location, dir string, lines []models.ClassifiedLine, errs []error) documentReport {
	rep := documentReport{
		location:      location,
		prerequisites: parser.PrerequisiteSteps(lines),
		nextSteps:     parser.NextSteps(lines),
		errs:          errs,
	}
	for _, l := range lines {
		switch l.Kind {
		case models.KindExecutable:
			rep.commands++
		case models.KindResult:
			rep.results++
		}
	}

	if !source.IsURL(dir) {
		for _, p := range rep.prerequisites {
			if source.IsURL(p.Href) {
				continue
			}
			d, f := source.ResolvePrerequisite(dir, p.Href)
			if !isFile(filepath.Join(d, f)) {
				rep.missing = append(rep.missing, p.Href)
			}
		}
		for _, n := range rep.nextSteps {
			if source.IsURL(n.Directory) {
				continue
			}
			if !isDir(source.Join(dir, n.Directory)) {
				rep.missing = append(rep.missing, n.Directory)
			}
		}
	}
	return rep
}

func printDocumentReport(w io.Writer, rep documentReport, lines []models.ClassifiedLine, verbose bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	fmt.Fprintf(w, "%s\n", rep.location)
	if verbose {
		for _, l := range lines {
			if l.IsEnd() {
				continue
			}
			gray.Fprintf(w, "  %-12s ", l.Kind)
			fmt.Fprintf(w, "%s\n", strings.TrimRight(l.Text, "\r\n"))
		}
	}
	fmt.Fprintf(w, "  Commands: %d, result lines: %d, prerequisites: %d, next steps: %d\n",
		rep.commands, rep.results, len(rep.prerequisites), len(rep.nextSteps))

	if len(rep.errs) == 0 && len(rep.missing) == 0 {
		green.Fprintf(w, "  ✓ valid\n")
		return
	}

	for _, err := range rep.errs {
		red.Fprintf(w, "  ✗ %v\n", err)
	}
	if len(rep.missing) > 0 {
		warning := display.Warning{
			Title:      "Linked documents not found",
			Items:      rep.missing,
			Suggestion: "Fix the link or create the target before running this document.",
		}
		warning.Display(w, false)
	}
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
