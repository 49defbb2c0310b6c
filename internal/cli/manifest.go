package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/silvics/cbmconv/internal/events"
)

// Manifest is the CUE conversion manifest: input and output paths plus the
// two run selectors.
type Manifest struct {
	// Project is the path to the project SQLite database (required).
	Project string `json:"project"`
	// Defaults is the path to the default-parameters database (optional;
	// without it the parameter diff is skipped).
	Defaults string `json:"defaults"`
	// Extract is the path to the flat disturbance extract CSV (required
	// when source is "extract").
	Extract string `json:"extract"`
	// Output is the path of the canonical output database (required for
	// convert; check and diff run without it).
	Output string `json:"output"`

	// NFCMars enables the spatial-framework enrichment.
	NFCMars bool `json:"nfcmars"`
	// Source selects the disturbance-event source: "relational" or
	// "extract". Empty means relational.
	Source string `json:"source"`
	// Parallel runs the validation battery concurrently.
	Parallel bool `json:"parallel"`
}

// ManifestError is a manifest loading or validation failure.
type ManifestError struct {
	Code    string
	Message string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeLoadFailed  = "E003" // CUE load failed
	ErrCodeBuildFailed = "E004" // CUE build/decode failed
	ErrCodeOpenFailed  = "E005" // Input database open failed
	ErrCodeReadFailed  = "E006" // Input read failed
	ErrCodeWriteFailed = "E007" // Output write failed

	// Manifest validation errors
	ErrCodeManifestProject  = "E101" // Missing project path
	ErrCodeManifestOutput   = "E102" // Missing output path
	ErrCodeManifestSource   = "E103" // Invalid source mode
	ErrCodeManifestExtract  = "E104" // Extract mode without extract path
	ErrCodeManifestDefaults = "E105" // Diff without a defaults path
)

// LoadManifest reads and validates a CUE conversion manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &ManifestError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
	}
	if err != nil {
		return nil, &ManifestError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading manifest: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &ManifestError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	m := &Manifest{}
	if err := value.Decode(m); err != nil {
		return nil, &ManifestError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("decoding manifest: %v", err)}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// SourceMode returns the manifest's disturbance source mode, defaulting to
// relational.
func (m *Manifest) SourceMode() events.Mode {
	if m.Source == "" {
		return events.SourceRelational
	}
	return events.Mode(m.Source)
}

func (m *Manifest) validate() error {
	if m.Project == "" {
		return &ManifestError{Code: ErrCodeManifestProject, Message: "manifest does not set a project database path"}
	}
	switch m.SourceMode() {
	case events.SourceRelational:
	case events.SourceExtract:
		if m.Extract == "" {
			return &ManifestError{Code: ErrCodeManifestExtract, Message: `source "extract" requires an extract path`}
		}
	default:
		return &ManifestError{Code: ErrCodeManifestSource, Message: fmt.Sprintf("invalid source mode %q", m.Source)}
	}
	return nil
}
