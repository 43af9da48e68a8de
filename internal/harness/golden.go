package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/snapvault/internal/doc"
)

// TraceSnapshot captures the trace of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Kind         string       `json:"kind"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot to plain values for canonical JSON.
// Empty optional fields are omitted; delta counts are kept for every event
// that wrote a commit.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":    ev.Step,
			"op":      ev.Op,
			"kind":    ev.Kind,
			"outcome": ev.Outcome,
		}
		if ev.Branch != "" {
			m["branch"] = ev.Branch
		}
		if ev.Commit != "" {
			m["commit"] = ev.Commit
			m["message"] = ev.Message
			m["added"] = ev.Added
			m["removed"] = ev.Removed
		}
		if ev.Parent != "" {
			m["parent"] = ev.Parent
		}
		if len(ev.Conflicts) > 0 {
			conflicts := make([]any, len(ev.Conflicts))
			for j, c := range ev.Conflicts {
				conflicts[j] = map[string]any{
					"field":         c.Field,
					"source_values": c.SourceValues,
					"target_values": c.TargetValues,
				}
			}
			m["conflicts"] = conflicts
		}
		trace[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"kind":          s.Kind,
		"trace":         trace,
	}
}

// Marshal renders the snapshot as indented canonical JSON with a trailing
// newline.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	canonical, err := doc.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check assertions.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, scenario.Kind, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName, kind string, result *Result) error {
	t.Helper()

	if kind == "" {
		kind = DefaultKind
	}
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Kind:         kind,
		Trace:        result.Trace,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
