package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a reconstruction test scenario.
// A scenario feeds log text through the full pipeline and asserts on the
// reconstructed records, the run summary and the rendered document.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional YAML or CUE config file.
	// Relative paths are resolved against the scenario file location.
	Config string `yaml:"config,omitempty"`

	// Input is the log text, one event per line.
	Input string `yaml:"input,omitempty"`

	// InputFile names a log file (possibly gzip or zstd compressed) to read
	// instead of Input. Relative paths resolve like Config.
	InputFile string `yaml:"input_file,omitempty"`

	// Assertions validate the run.
	// Supported types: record_count, record, row_order, diagnostic_count,
	// unrecognized_count, empty_document
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_count": exactly Count records were reconstructed
	// - "record": the record for Entity has the given fields
	// - "row_order": Entities appear as rows in this relative order
	// - "diagnostic_count": exactly Count diagnostics were reported
	// - "unrecognized_count": exactly Count lines matched no event shape
	// - "empty_document": the document is (or is not) the empty-state message
	Type string `yaml:"type"`

	// Count is the expected number (record_count, diagnostic_count, unrecognized_count).
	Count int `yaml:"count,omitempty"`

	// Entity selects the record (used by record).
	Entity string `yaml:"entity,omitempty"`

	// Expected record fields (used by record). Empty fields are not checked.
	Status      string `yaml:"status,omitempty"`
	StartKind   string `yaml:"start_kind,omitempty"`
	PrevVersion string `yaml:"prev_version,omitempty"`
	CurrVersion string `yaml:"curr_version,omitempty"`

	// DurationS is the expected end-start in seconds (used by record).
	// Only checked when set; an open record has no duration.
	DurationS *float64 `yaml:"duration_s,omitempty"`

	// Entities is the expected row order (used by row_order).
	Entities []string `yaml:"entities,omitempty"`

	// Empty is the expected document state (used by empty_document).
	Empty *bool `yaml:"empty,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount       = "record_count"
	AssertRecord            = "record"
	AssertRowOrder          = "row_order"
	AssertDiagnosticCount   = "diagnostic_count"
	AssertUnrecognizedCount = "unrecognized_count"
	AssertEmptyDocument     = "empty_document"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve file paths relative to the scenario BEFORE validation
	base := filepath.Dir(path)
	scenario.Config = resolve(base, scenario.Config)
	scenario.InputFile = resolve(base, scenario.InputFile)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Input != "" && s.InputFile != "" {
		return fmt.Errorf("input and input_file are mutually exclusive")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, path := range []string{s.Config, s.InputFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
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
	case AssertRecordCount, AssertDiagnosticCount, AssertUnrecognizedCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertRecord:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for record", index)
		}
	case AssertRowOrder:
		if len(a.Entities) == 0 {
			return fmt.Errorf("assertions[%d]: entities list is required for row_order", index)
		}
	case AssertEmptyDocument:
		if a.Empty == nil {
			return fmt.Errorf("assertions[%d]: empty is required for empty_document", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
