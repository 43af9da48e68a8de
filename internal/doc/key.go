package doc

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FactKey returns the comparison key for a fact: surrounding whitespace is
// trimmed, the text is Unicode case-folded and NFC normalized. Two facts
// with the same key are the same fact. An empty key means the fact is blank.
func FactKey(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	// Casers are stateful; one per call.
	return norm.NFC.String(cases.Fold().String(trimmed))
}

// keySet indexes the non-blank facts of a list by FactKey.
func keySet(list List) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, item := range list {
		if k := FactKey(item); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
