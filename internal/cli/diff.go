package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/schema"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions

	// Generator allows overriding the run id generator (for testing).
	Generator convert.RunIDGenerator
}

// DiffResult is the diff command's payload.
type DiffResult struct {
	Differences []schema.ParameterDifference `json:"differences"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <manifest>",
		Short: "Compare project parameters against the defaults database",
		Long: `Compare the project's parameter tables against the defaults database
named in the manifest.

Only tables present in both databases are compared; absent reference tables
are skipped and reported as issues by check and convert.

Example:
  cbmconv diff ./project.cue
  cbmconv diff ./project.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], cmd)
		},
	}

	return cmd
}

func runDiff(opts *DiffOptions, manifestPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	m, err := loadManifestOrReport(formatter, manifestPath)
	if err != nil {
		return err
	}
	if m.Defaults == "" {
		msg := "manifest does not set a defaults database path"
		_ = formatter.Error(ErrCodeManifestDefaults, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeManifestDefaults, msg))
	}

	gen := opts.Generator
	if gen == nil {
		gen = convert.UUIDv7Generator{}
	}
	result, err := runPipeline(cmd.Context(), m, gen)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return err
	}

	return outputDifferences(formatter, result)
}

// outputDifferences prints the parameter diff in the configured format.
func outputDifferences(formatter *OutputFormatter, result *convert.Result) error {
	diffs := result.Report.Differences()
	if formatter.Format == "json" {
		return formatter.Success(result.RunID, DiffResult{Differences: diffs})
	}

	if len(diffs) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ No parameter differences")
		return nil
	}
	for _, d := range diffs {
		switch d.Kind {
		case schema.DiffAdded:
			fmt.Fprintf(formatter.Writer, "+ %s %s\n", d.Table, d.Key)
		case schema.DiffRemoved:
			fmt.Fprintf(formatter.Writer, "- %s %s\n", d.Table, d.Key)
		default:
			fmt.Fprintf(formatter.Writer, "~ %s %s %s: %s -> %s\n",
				d.Table, d.Key, d.Field, d.ProjectValue, d.DefaultValue)
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d difference(s)\n", len(diffs))
	return nil
}
