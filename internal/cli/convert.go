package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/export"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Out string

	// Generator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Generator convert.RunIDGenerator
}

// ConvertResult is the convert command's success payload.
type ConvertResult struct {
	Output  string          `json:"output"`
	Summary convert.Summary `json:"summary"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <manifest>",
		Short: "Convert a project to the canonical table set",
		Long: `Convert a legacy CBM-CFS3 project to the canonical table set.

The manifest names the project database, the optional defaults database and
flat disturbance extract, and the output database path. The full run produces
the canonical tables, the parameter diff and the validation report, all
written to the output database under one run id.

Example:
  cbmconv convert ./project.cue
  cbmconv convert ./project.cue --out /tmp/canonical.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "output database path (overrides the manifest)")

	return cmd
}

func runConvert(opts *ConvertOptions, manifestPath string, cmd *cobra.Command) error {
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
	if opts.Out != "" {
		m.Output = opts.Out
	}
	if m.Output == "" {
		msg := "manifest does not set an output database path"
		_ = formatter.Error(ErrCodeManifestOutput, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeManifestOutput, msg))
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

	st, err := export.Open(m.Output)
	if err != nil {
		_ = formatter.Error(ErrCodeOpenFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open output database", err)
	}
	defer func() {
		_ = st.Close()
	}()
	if err := st.Write(cmd.Context(), result.RunID, result.Dataset, result.Report); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write output database", err)
	}

	if err := outputSummary(formatter, m.Output, result); err != nil {
		return err
	}
	if result.Summary.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("conversion finished with %d error(s)", result.Summary.Errors))
	}
	return nil
}

// loadManifestOrReport loads the manifest and reports failures through the
// formatter, keeping the exit code mapping in one place.
func loadManifestOrReport(formatter *OutputFormatter, path string) (*Manifest, error) {
	m, err := LoadManifest(path)
	if err == nil {
		return m, nil
	}
	var mErr *ManifestError
	if errors.As(err, &mErr) {
		_ = formatter.Error(mErr.Code, mErr.Message, nil)
	} else {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	}
	return nil, WrapExitError(ExitCommandError, "failed to load manifest", err)
}

// outputSummary prints the run summary in the configured format.
func outputSummary(formatter *OutputFormatter, output string, result *convert.Result) error {
	if formatter.Format == "json" {
		return formatter.Success(result.RunID, ConvertResult{
			Output:  output,
			Summary: result.Summary,
		})
	}

	s := result.Summary
	fmt.Fprintf(formatter.Writer, "Run %s written to %s\n", result.RunID, output)
	fmt.Fprintf(formatter.Writer, "  inventory rows: %d\n", s.InventoryRows)
	fmt.Fprintf(formatter.Writer, "  events:         %d\n", s.Events)
	fmt.Fprintf(formatter.Writer, "  differences:    %d\n", s.Differences)
	fmt.Fprintf(formatter.Writer, "  issues:         %d error(s), %d warning(s), %d info\n",
		s.Errors, s.Warnings, s.Infos)
	return nil
}
