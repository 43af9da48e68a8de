package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultKind is the document kind used when a scenario names none.
const DefaultKind = "profile"

// Scenario is a sequence of store operations plus assertions on the
// resulting state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kind is the document kind steps operate on unless they override it.
	Kind string `yaml:"kind,omitempty"`

	// Steps run in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after all steps.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one store operation. Exactly one operation field must be set.
type Step struct {
	Kind string `yaml:"kind,omitempty"`

	Commit       *CommitStep       `yaml:"commit,omitempty"`
	Branch       *BranchStep       `yaml:"branch,omitempty"`
	Merge        *MergeStep        `yaml:"merge,omitempty"`
	Rollback     *RollbackStep     `yaml:"rollback,omitempty"`
	DeleteBranch *DeleteBranchStep `yaml:"delete_branch,omitempty"`
	Migrate      *MigrateStep      `yaml:"migrate,omitempty"`
}

type CommitStep struct {
	Branch     string         `yaml:"branch,omitempty"`
	Message    string         `yaml:"message"`
	Confidence string         `yaml:"confidence,omitempty"`
	Snapshot   map[string]any `yaml:"snapshot"`
}

type BranchStep struct {
	Name string `yaml:"name"`
	From string `yaml:"from,omitempty"`
}

type MergeStep struct {
	Source string `yaml:"source"`
	Target string `yaml:"target,omitempty"`
}

// RollbackStep names its target by commit label ("c2"). Unknown labels
// are passed through as hashes.
type RollbackStep struct {
	To string `yaml:"to"`
}

type DeleteBranchStep struct {
	Name string `yaml:"name"`
}

type MigrateStep struct {
	Snapshot map[string]any `yaml:"snapshot"`
}

// Op returns the name of the operation the step sets, or "" if none.
func (s Step) Op() string {
	ops := s.ops()
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

func (s Step) ops() []string {
	var ops []string
	if s.Commit != nil {
		ops = append(ops, OpCommit)
	}
	if s.Branch != nil {
		ops = append(ops, OpBranch)
	}
	if s.Merge != nil {
		ops = append(ops, OpMerge)
	}
	if s.Rollback != nil {
		ops = append(ops, OpRollback)
	}
	if s.DeleteBranch != nil {
		ops = append(ops, OpDeleteBranch)
	}
	if s.Migrate != nil {
		ops = append(ops, OpMigrate)
	}
	return ops
}

// Step operation names.
const (
	OpCommit       = "commit"
	OpBranch       = "branch"
	OpMerge        = "merge"
	OpRollback     = "rollback"
	OpDeleteBranch = "delete_branch"
	OpMigrate      = "migrate"
)

// Assertion validates the final state or a step outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind overrides the scenario kind.
	Kind string `yaml:"kind,omitempty"`

	// Branch is the branch inspected (head_snapshot, log_count,
	// log_messages). Default "main".
	Branch string `yaml:"branch,omitempty"`

	// Step is the 1-based step number (conflicts, result).
	Step int `yaml:"step,omitempty"`

	// Expect is the expected document (head_snapshot) or outcome (result).
	Expect any `yaml:"expect,omitempty"`

	// Count is the expected number of entries (log_count, branch_count).
	Count *int `yaml:"count,omitempty"`

	// Messages are the expected log messages, newest first.
	Messages []string `yaml:"messages,omitempty"`

	// Fields are the expected conflicting fields, in order.
	Fields []string `yaml:"fields,omitempty"`
}

// Assertion type constants.
const (
	AssertHeadSnapshot = "head_snapshot"
	AssertLogCount     = "log_count"
	AssertLogMessages  = "log_messages"
	AssertConflicts    = "conflicts"
	AssertBranchCount  = "branch_count"
	AssertResult       = "result"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Kind == "" {
		scenario.Kind = DefaultKind
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	ops := step.ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: one operation is required", i)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one operation allowed, got %v", i, ops)
	}

	switch {
	case step.Commit != nil:
		if step.Commit.Message == "" {
			return fmt.Errorf("steps[%d].commit: message is required", i)
		}
		if step.Commit.Snapshot == nil {
			return fmt.Errorf("steps[%d].commit: snapshot is required (use {} for empty)", i)
		}
	case step.Branch != nil:
		if step.Branch.Name == "" {
			return fmt.Errorf("steps[%d].branch: name is required", i)
		}
	case step.Merge != nil:
		if step.Merge.Source == "" {
			return fmt.Errorf("steps[%d].merge: source is required", i)
		}
	case step.Rollback != nil:
		if step.Rollback.To == "" {
			return fmt.Errorf("steps[%d].rollback: to is required", i)
		}
	case step.DeleteBranch != nil:
		if step.DeleteBranch.Name == "" {
			return fmt.Errorf("steps[%d].delete_branch: name is required", i)
		}
	case step.Migrate != nil:
		if step.Migrate.Snapshot == nil {
			return fmt.Errorf("steps[%d].migrate: snapshot is required", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertHeadSnapshot:
		if _, ok := a.Expect.(map[string]any); !ok {
			return fmt.Errorf("assertions[%d]: expect must be a mapping for head_snapshot", index)
		}
	case AssertLogCount, AssertBranchCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertLogMessages:
		if a.Messages == nil {
			return fmt.Errorf("assertions[%d]: messages is required for log_messages", index)
		}
	case AssertConflicts, AssertResult:
		if a.Step < 1 || a.Step > steps {
			return fmt.Errorf("assertions[%d]: step must be between 1 and %d for %s", index, steps, a.Type)
		}
		if a.Type == AssertResult {
			if _, ok := a.Expect.(string); !ok {
				return fmt.Errorf("assertions[%d]: expect must be an outcome string for result", index)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
