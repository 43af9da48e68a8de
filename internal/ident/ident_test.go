package ident

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitHash_Deterministic(t *testing.T) {
	h1, err := CommitHash("skills", "main", "", "n1")
	require.NoError(t, err)
	h2, err := CommitHash("skills", "main", "", "n1")
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Regexp(t, `^[0-9a-f]{64}$`, h1)
}

func TestCommitHash_EveryInputMatters(t *testing.T) {
	base, err := CommitHash("skills", "main", "p", "n")
	require.NoError(t, err)

	variants := [][4]string{
		{"tasks", "main", "p", "n"},
		{"skills", "feature", "p", "n"},
		{"skills", "main", "q", "n"},
		{"skills", "main", "p", "m"},
	}
	for _, v := range variants {
		h, err := CommitHash(v[0], v[1], v[2], v[3])
		require.NoError(t, err)
		assert.NotEqual(t, base, h, "inputs %v", v)
	}
}

func TestShort(t *testing.T) {
	assert.Equal(t, "0123456789ab", Short("0123456789abcdef"))
	assert.Equal(t, "abc", Short("abc"))
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		nonce := gen.Generate()
		parsed, err := uuid.Parse(nonce)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		require.False(t, seen[nonce], "nonce %s generated twice", nonce)
		seen[nonce] = true
	}
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Equal(t, "b-2", gen.Generate())
	assert.Equal(t, "b-3", gen.Generate())

	empty := NewFixedGenerator()
	assert.Equal(t, "nonce-0", empty.Generate())
}
