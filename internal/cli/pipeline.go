package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/source"
)

// configureLogging installs the default slog handler for one command run.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// loadInputs opens and reads every input the manifest names.
func loadInputs(ctx context.Context, m *Manifest) (convert.Inputs, error) {
	var in convert.Inputs

	slog.Info("opening project database", "path", m.Project)
	projectDB, err := source.Open(m.Project)
	if err != nil {
		return in, WrapExitError(ExitCommandError, "failed to open project database", err)
	}
	defer func() {
		if closeErr := projectDB.Close(); closeErr != nil {
			slog.Error("error closing project database", "error", closeErr)
		}
	}()
	if in.Project, err = projectDB.LoadProject(ctx); err != nil {
		return in, WrapExitError(ExitCommandError, "failed to read project database", err)
	}

	if m.Defaults != "" {
		slog.Info("opening defaults database", "path", m.Defaults)
		defaultsDB, err := source.Open(m.Defaults)
		if err != nil {
			return in, WrapExitError(ExitCommandError, "failed to open defaults database", err)
		}
		defer func() {
			if closeErr := defaultsDB.Close(); closeErr != nil {
				slog.Error("error closing defaults database", "error", closeErr)
			}
		}()
		if in.Reference, err = defaultsDB.LoadReference(ctx); err != nil {
			return in, WrapExitError(ExitCommandError, "failed to read defaults database", err)
		}
	}

	if m.Extract != "" {
		slog.Info("reading disturbance extract", "path", m.Extract)
		if in.Extract, err = source.LoadExtract(m.Extract); err != nil {
			return in, WrapExitError(ExitCommandError, "failed to read disturbance extract", err)
		}
	}

	return in, nil
}

// runPipeline loads inputs and executes the conversion for one manifest.
func runPipeline(ctx context.Context, m *Manifest, gen convert.RunIDGenerator) (*convert.Result, error) {
	in, err := loadInputs(ctx, m)
	if err != nil {
		return nil, err
	}

	result, err := convert.Run(convert.Options{
		NFCMars:           m.NFCMars,
		DisturbanceSource: m.SourceMode(),
		ParallelChecks:    m.Parallel,
		RunIDs:            gen,
	}, in)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "conversion failed", err)
	}
	return result, nil
}
