package doc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mergeNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestMergeDocuments_UnionPreservesTargetOrderAndCasing(t *testing.T) {
	target := Document{"skills": List{"TypeScript", "Go"}}
	source := Document{"skills": List{"go", "Rust", "rust", " "}}

	merged, conflicts := MergeDocuments(target, source, mergeNow)

	assert.Empty(t, conflicts)
	assert.Equal(t, List{"TypeScript", "Go", "Rust"}, merged["skills"])
}

func TestMergeDocuments_ListOnlyInSource(t *testing.T) {
	merged, _ := MergeDocuments(Document{}, Document{"tasks": List{"a", "A", "b"}}, mergeNow)
	assert.Equal(t, List{"a", "b"}, merged["tasks"])
}

func TestMergeDocuments_ListOnlyInTarget(t *testing.T) {
	merged, _ := MergeDocuments(Document{"tasks": List{"a", "a"}}, Document{}, mergeNow)
	assert.Equal(t, List{"a", "a"}, merged["tasks"])
}

func TestMergeDocuments_ScalarConflictKeepsTarget(t *testing.T) {
	merged, conflicts := MergeDocuments(Document{"x": Text("B")}, Document{"x": Text("A")}, mergeNow)

	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{Field: "x", SourceValues: []string{"A"}, TargetValues: []string{"B"}}, conflicts[0])
	assert.Equal(t, Text("B"), merged["x"])
}

func TestMergeDocuments_EqualScalarsNoConflict(t *testing.T) {
	merged, conflicts := MergeDocuments(Document{"x": Text("same")}, Document{"x": Text("same")}, mergeNow)
	assert.Empty(t, conflicts)
	assert.Equal(t, Text("same"), merged["x"])
}

func TestMergeDocuments_ScalarOnOneSideCopied(t *testing.T) {
	merged, conflicts := MergeDocuments(Document{"a": Text("1")}, Document{"b": Text("2")}, mergeNow)
	assert.Empty(t, conflicts)
	assert.Equal(t, Text("1"), merged["a"])
	assert.Equal(t, Text("2"), merged["b"])
}

func TestMergeDocuments_MixedTypesConflict(t *testing.T) {
	merged, conflicts := MergeDocuments(Document{"f": Text("t")}, Document{"f": List{"s1", "s2"}}, mergeNow)

	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"s1", "s2"}, conflicts[0].SourceValues)
	assert.Equal(t, []string{"t"}, conflicts[0].TargetValues)
	assert.Equal(t, Text("t"), merged["f"])
}

func TestMergeDocuments_StampsLastUpdated(t *testing.T) {
	target := Document{LastUpdated: Text("old-target")}
	source := Document{LastUpdated: Text("old-source")}

	merged, conflicts := MergeDocuments(target, source, mergeNow)

	assert.Empty(t, conflicts)
	assert.Equal(t, Text("2026-01-02T03:04:05.000Z"), merged[LastUpdated])
}

func TestMergeDocuments_Idempotent(t *testing.T) {
	target := Document{"skills": List{"a", "b"}}
	source := Document{"skills": List{"B", "c"}}

	first, _ := MergeDocuments(target, source, mergeNow)
	second, _ := MergeDocuments(first, source, mergeNow)

	assert.True(t, ComputeDelta(first, second).IsEmpty())
	assert.Equal(t, List{"a", "b", "c"}, second["skills"])
}

func TestMergeDocuments_DoesNotAliasInputs(t *testing.T) {
	target := Document{"skills": List{"a"}}
	merged, _ := MergeDocuments(target, Document{}, mergeNow)

	merged["skills"].(List)[0] = "mutated"
	assert.Equal(t, List{"a"}, target["skills"])
}
