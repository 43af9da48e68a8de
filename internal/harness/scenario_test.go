package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	yaml := `
name: parse
description: All step kinds
steps:
  - commit:
      message: seed
      confidence: high
      snapshot: { skills: [go], title: eng }
  - branch: { name: feature, from: main }
  - merge: { source: feature, target: main }
  - rollback: { to: c1 }
  - delete_branch: { name: feature }
  - kind: resume
    migrate:
      snapshot: {}
assertions:
  - type: log_count
    count: 3
  - type: result
    step: 2
    expect: ok
`
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "parse", s.Name)
	assert.Equal(t, DefaultKind, s.Kind)
	require.Len(t, s.Steps, 6)

	ops := make([]string, len(s.Steps))
	for i, step := range s.Steps {
		ops[i] = step.Op()
	}
	assert.Equal(t, []string{OpCommit, OpBranch, OpMerge, OpRollback, OpDeleteBranch, OpMigrate}, ops)

	assert.Equal(t, "high", s.Steps[0].Commit.Confidence)
	assert.Equal(t, []any{"go"}, s.Steps[0].Commit.Snapshot["skills"])
	assert.Equal(t, "main", s.Steps[1].Branch.From)
	assert.Equal(t, "resume", s.Steps[5].Kind)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 3, *s.Assertions[0].Count)
}

func TestParseScenario_KeepsExplicitKind(t *testing.T) {
	yaml := `
name: k
description: d
kind: resume
steps:
  - commit: { message: m, snapshot: {} }
assertions:
  - type: log_count
    count: 1
`
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "resume", s.Kind)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstepz: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: d\nsteps: []\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\ndescription: d\nsteps:\n  - branch: { name: b }\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "step without operation",
			yaml:    "name: x\ndescription: d\nsteps:\n  - kind: profile\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "steps[0]: one operation is required",
		},
		{
			name:    "step with two operations",
			yaml:    "name: x\ndescription: d\nsteps:\n  - branch: { name: b }\n    merge: { source: b }\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "exactly one operation allowed",
		},
		{
			name:    "commit without message",
			yaml:    "name: x\ndescription: d\nsteps:\n  - commit: { snapshot: {} }\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "steps[0].commit: message is required",
		},
		{
			name:    "commit without snapshot",
			yaml:    "name: x\ndescription: d\nsteps:\n  - commit: { message: m }\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "snapshot is required",
		},
		{
			name:    "merge without source",
			yaml:    "name: x\ndescription: d\nsteps:\n  - merge: { target: main }\nassertions:\n  - { type: branch_count, count: 1 }\n",
			wantErr: "steps[0].merge: source is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: d\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: trace_contains }\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "count missing",
			yaml:    "name: x\ndescription: d\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: log_count }\n",
			wantErr: "non-negative count is required",
		},
		{
			name:    "result step out of range",
			yaml:    "name: x\ndescription: d\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: result, step: 2, expect: ok }\n",
			wantErr: "step must be between 1 and 1",
		},
		{
			name:    "head snapshot expect not a mapping",
			yaml:    "name: x\ndescription: d\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: head_snapshot, expect: [a] }\n",
			wantErr: "expect must be a mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := "name: file\ndescription: d\nsteps:\n  - branch: { name: b }\nassertions:\n  - { type: branch_count, count: 1 }\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestStep_Op(t *testing.T) {
	assert.Equal(t, "", Step{}.Op())
	assert.Equal(t, OpMigrate, Step{Migrate: &MigrateStep{}}.Op())
	assert.Equal(t, "", Step{Commit: &CommitStep{}, Migrate: &MigrateStep{}}.Op())
}
