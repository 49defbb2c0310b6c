package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/schema"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions

	// Generator allows overriding the run id generator (for testing).
	Generator convert.RunIDGenerator
}

// CheckResult is the check command's payload.
type CheckResult struct {
	Valid   bool                     `json:"valid"`
	Summary convert.Summary          `json:"summary"`
	Issues  []schema.ValidationIssue `json:"issues,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <manifest>",
		Short: "Run the validation battery without writing output",
		Long: `Run the full conversion and validation battery without writing the
output database.

The pipeline is identical to convert up to the export step, so the issue
report matches what a convert of the same manifest would record.

Example:
  cbmconv check ./project.cue
  cbmconv check ./project.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *CheckOptions, manifestPath string, cmd *cobra.Command) error {
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

	gen := opts.Generator
	if gen == nil {
		gen = convert.UUIDv7Generator{}
	}
	result, err := runPipeline(cmd.Context(), m, gen)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return err
	}

	if err := outputIssues(formatter, result); err != nil {
		return err
	}
	if result.Summary.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.Summary.Errors))
	}
	return nil
}

// outputIssues prints the issue report in the configured format.
func outputIssues(formatter *OutputFormatter, result *convert.Result) error {
	issues := result.Report.Issues()
	if formatter.Format == "json" {
		return formatter.Success(result.RunID, CheckResult{
			Valid:   result.Summary.Errors == 0,
			Summary: result.Summary,
			Issues:  issues,
		})
	}

	if len(issues) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ No issues found")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "%s [%s] %s row %d: %s\n",
			issue.Severity, issue.Category, issue.Table, issue.RowID, issue.Message)
	}
	fmt.Fprintf(formatter.Writer, "\n%d error(s), %d warning(s), %d info\n",
		result.Summary.Errors, result.Summary.Warnings, result.Summary.Infos)
	return nil
}
