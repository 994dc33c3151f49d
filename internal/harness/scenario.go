package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/borrowck/internal/perm"
)

// Scenario defines a conformance test scenario: a trace program plus the
// verdict the checker must reach on it.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Trace is the path to the CUE trace file to compile and run.
	// Relative paths resolve against the scenario file location.
	Trace string `yaml:"trace,omitempty"`

	// Program is inline CUE trace source, an alternative to Trace for
	// small self-contained scenarios. Exactly one of Trace and Program
	// must be set.
	Program string `yaml:"program,omitempty"`

	// Expect specifies the required verdict.
	Expect ExpectClause `yaml:"expect"`

	// RunID is an optional fixed run ID for deterministic run-log contents.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// ExpectClause specifies the verdict a scenario requires.
type ExpectClause struct {
	// Status is "sound" or "violation".
	Status string `yaml:"status"`

	// Rule is the expected violation rule. Required when status is
	// "violation", forbidden when "sound".
	Rule string `yaml:"rule,omitempty"`

	// OpIndex is the expected faulting operation index. Optional; only
	// checked when set.
	OpIndex *int `yaml:"op_index,omitempty"`

	// Finals contains expected final allocation values. Subset match - only
	// listed allocations are checked.
	Finals map[string]int64 `yaml:"finals,omitempty"`
}

// validRules is the closed set of violation rules a scenario may expect.
var validRules = map[string]bool{
	string(perm.RuleUntaggedAccess):    true,
	string(perm.RuleTagNotFound):       true,
	string(perm.RuleDisabled):          true,
	string(perm.RuleReadOnlyViolation): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// the trace path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Trace != "" && !filepath.IsAbs(scenario.Trace) && basePath != "" {
		scenario.Trace = filepath.Join(basePath, scenario.Trace)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Trace == "" && s.Program == "" {
		return fmt.Errorf("one of trace or program is required")
	}
	if s.Trace != "" && s.Program != "" {
		return fmt.Errorf("trace and program are mutually exclusive")
	}
	if s.Trace != "" {
		if _, err := os.Stat(s.Trace); os.IsNotExist(err) {
			return fmt.Errorf("trace file not found: %s", s.Trace)
		}
	}

	switch s.Expect.Status {
	case "sound":
		if s.Expect.Rule != "" {
			return fmt.Errorf("expect.rule must be empty for a sound scenario")
		}
	case "violation":
		if s.Expect.Rule == "" {
			return fmt.Errorf("expect.rule is required for a violation scenario")
		}
		if !validRules[s.Expect.Rule] {
			return fmt.Errorf("unknown violation rule %q", s.Expect.Rule)
		}
	case "":
		return fmt.Errorf("expect.status is required")
	default:
		return fmt.Errorf("expect.status must be \"sound\" or \"violation\", got %q", s.Expect.Status)
	}

	if s.Expect.OpIndex != nil && *s.Expect.OpIndex < 0 {
		return fmt.Errorf("expect.op_index must be non-negative")
	}

	return nil
}
