package doc

import (
	"fmt"
	"strings"
)

// Confidence is the caller's trust annotation on a commit. The store
// carries it for display only and never orders or gates on it.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH_CONFIDENCE"
	ConfidenceMedium Confidence = "MEDIUM_CONFIDENCE"
	ConfidenceLow    Confidence = "LOW_CONFIDENCE"
)

// Valid reports whether c is one of the three known levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Short returns the level without the _CONFIDENCE suffix ("HIGH").
func (c Confidence) Short() string {
	return strings.TrimSuffix(string(c), "_CONFIDENCE")
}

func (c Confidence) String() string {
	return string(c)
}

// ParseConfidence accepts "high", "HIGH" or "HIGH_CONFIDENCE" (and the
// same for MEDIUM and LOW).
func ParseConfidence(s string) (Confidence, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasSuffix(upper, "_CONFIDENCE") {
		upper += "_CONFIDENCE"
	}
	c := Confidence(upper)
	if !c.Valid() {
		return "", fmt.Errorf("invalid confidence %q: must be one of HIGH, MEDIUM, LOW", s)
	}
	return c, nil
}
