package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		in   string
		want Confidence
	}{
		{"high", ConfidenceHigh},
		{"MEDIUM", ConfidenceMedium},
		{"LOW_CONFIDENCE", ConfidenceLow},
		{" low ", ConfidenceLow},
	}
	for _, tt := range tests {
		got, err := ParseConfidence(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseConfidence_Invalid(t *testing.T) {
	_, err := ParseConfidence("certain")
	assert.ErrorContains(t, err, "invalid confidence")
}

func TestConfidence_Short(t *testing.T) {
	assert.Equal(t, "HIGH", ConfidenceHigh.Short())
	assert.False(t, Confidence("").Valid())
}
