package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one project, one run
// configuration, and assertions on the resulting report.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// NFCMars enables the spatial-framework enrichment for this run.
	NFCMars bool `yaml:"nfcmars,omitempty"`

	// Source selects the disturbance-event source: "relational" (default)
	// or "extract".
	Source string `yaml:"source,omitempty"`

	// Project holds the raw project tables, keyed the way the source
	// adapter keys them.
	Project ProjectSpec `yaml:"project"`

	// Extract holds flat extract rows for extract-mode scenarios.
	Extract []ExtractRowSpec `yaml:"extract,omitempty"`

	// Assertions validate the issue report and run summary.
	Assertions []Assertion `yaml:"assertions"`
}

// ProjectSpec mirrors the raw project tables in YAML-friendly form. Ids are
// source ids; the pipeline remaps them to canonical surrogates.
type ProjectSpec struct {
	Classifiers      []ClassifierSpec      `yaml:"classifiers,omitempty"`
	ClassifierValues []ClassifierValueSpec `yaml:"classifier_values,omitempty"`
	ClassifierSets   []ClassifierSetSpec   `yaml:"classifier_sets,omitempty"`

	AdminBoundaries  []NamedSpec       `yaml:"admin_boundaries,omitempty"`
	EcoBoundaries    []NamedSpec       `yaml:"eco_boundaries,omitempty"`
	SpatialUnits     []SpatialUnitSpec `yaml:"spatial_units,omitempty"`
	Species          []SpeciesSpec     `yaml:"species,omitempty"`
	DisturbanceTypes []NamedSpec       `yaml:"disturbance_types,omitempty"`

	Inventory              []InventorySpec             `yaml:"inventory,omitempty"`
	DisturbanceEvents      []EventSpec                 `yaml:"disturbance_events,omitempty"`
	Eligibilities          []EligibilitySpec           `yaml:"eligibilities,omitempty"`
	EligibilityAssignments []EligibilityAssignmentSpec `yaml:"eligibility_assignments,omitempty"`
	MerchVolumes           []MerchVolumeSpec           `yaml:"merch_volumes,omitempty"`

	SpatialFramework []FrameworkSpec  `yaml:"spatial_framework,omitempty"`
	ClassMemberships []MembershipSpec `yaml:"class_memberships,omitempty"`
}

// ClassifierSpec is one project classifier.
type ClassifierSpec struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// ClassifierValueSpec is one allowed classifier value.
type ClassifierValueSpec struct {
	ID         int64  `yaml:"id"`
	Classifier int64  `yaml:"classifier"`
	Value      string `yaml:"value"`
}

// ClassifierSetSpec is one classifier set with its bound values inline.
type ClassifierSetSpec struct {
	ID     int64          `yaml:"id"`
	Name   string         `yaml:"name"`
	Values []SetValueSpec `yaml:"values,omitempty"`
}

// SetValueSpec binds one value into a classifier set.
type SetValueSpec struct {
	Classifier int64 `yaml:"classifier"`
	Value      int64 `yaml:"value"`
}

// NamedSpec is a flat (id, name) lookup row.
type NamedSpec struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// SpatialUnitSpec is one project spatial unit.
type SpatialUnitSpec struct {
	ID         int64  `yaml:"id"`
	Admin      int64  `yaml:"admin"`
	Eco        int64  `yaml:"eco"`
	DefaultSPU *int64 `yaml:"default_spu,omitempty"`
}

// SpeciesSpec is one project species row.
type SpeciesSpec struct {
	ID         int64  `yaml:"id"`
	Name       string `yaml:"name"`
	Genus      string `yaml:"genus,omitempty"`
	ForestType string `yaml:"forest_type,omitempty"`
}

// InventorySpec is one stand record.
type InventorySpec struct {
	SPU      *int64  `yaml:"spu,omitempty"`
	Set      int64   `yaml:"set"`
	Age      int64   `yaml:"age"`
	Area     float64 `yaml:"area"`
	Delay    int64   `yaml:"delay,omitempty"`
	Historic *int64  `yaml:"historic,omitempty"`
	LastPass *int64  `yaml:"last_pass,omitempty"`
}

// EventSpec is one relational disturbance event row.
type EventSpec struct {
	Set         *int64  `yaml:"set,omitempty"`
	SPU         *int64  `yaml:"spu,omitempty"`
	Eligibility *int64  `yaml:"eligibility,omitempty"`
	Efficiency  float64 `yaml:"efficiency"`
	SortType    int64   `yaml:"sort_type,omitempty"`
	Target      string  `yaml:"target"`
	Magnitude   float64 `yaml:"magnitude"`
	Type        *int64  `yaml:"type,omitempty"`
	Timestep    int64   `yaml:"timestep"`
}

// EligibilitySpec is one named filter-expression pair.
type EligibilitySpec struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Pool  string `yaml:"pool,omitempty"`
	State string `yaml:"state,omitempty"`
}

// EligibilityAssignmentSpec is one dimension-qualified eligibility
// declaration.
type EligibilityAssignmentSpec struct {
	SPU         *int64 `yaml:"spu,omitempty"`
	Set         *int64 `yaml:"set,omitempty"`
	Eligibility int64  `yaml:"eligibility"`
}

// MerchVolumeSpec is one growth-curve group with its points inline.
type MerchVolumeSpec struct {
	ID         int64           `yaml:"id"`
	SPU        *int64          `yaml:"spu,omitempty"`
	Set        *int64          `yaml:"set,omitempty"`
	Components []ComponentSpec `yaml:"components,omitempty"`
}

// ComponentSpec is one growth-curve point.
type ComponentSpec struct {
	Species int64   `yaml:"species"`
	Age     int64   `yaml:"age"`
	Volume  float64 `yaml:"volume"`
}

// FrameworkSpec maps one spatial unit to its NFCMars polygon id.
type FrameworkSpec struct {
	SPU  int64 `yaml:"spu"`
	PSPU int64 `yaml:"pspu"`
}

// MembershipSpec is one class-membership row.
type MembershipSpec struct {
	SPU        int64  `yaml:"spu"`
	Class      string `yaml:"class"`
	Membership int64  `yaml:"membership"`
}

// ExtractRowSpec is one flat extract row.
type ExtractRowSpec struct {
	Values     []string `yaml:"values"`
	DefaultSPU *int64   `yaml:"default_spu,omitempty"`
	SPU        *int64   `yaml:"spu,omitempty"`
	Type       string   `yaml:"type"`
	Timestep   int64    `yaml:"timestep"`
	Area       float64  `yaml:"area"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently dropping a table.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario under dir, sorted by file name
// for stable test order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Source {
	case "", "relational":
	case "extract":
		if len(s.Extract) == 0 {
			return fmt.Errorf("extract source requires extract rows")
		}
	default:
		return fmt.Errorf("unknown source %q", s.Source)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertIssueContains:
		if a.Category == "" {
			return fmt.Errorf("assertions[%d]: category is required for issue_contains", index)
		}
	case AssertIssueCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for issue_count", index)
		}
	case AssertSummary:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for summary", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
