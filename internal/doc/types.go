package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LastUpdated is the reserved timestamp field stamped on documents.
// It is excluded from delta computation and merging.
const LastUpdated = "lastUpdated"

// TimestampLayout is the wall-clock format used for lastUpdated and for
// created_at columns (millisecond precision, UTC "Z" suffix).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Value is a sealed interface for document field values.
// Only Text, List and Raw implement it.
type Value interface {
	docValue()
}

// Text is a scalar string field.
type Text string

func (Text) docValue() {}

// List is an ordered list of facts.
type List []string

func (List) docValue() {}

// Raw holds any JSON value that is neither a string nor an array of
// strings. It is preserved as-is, treated as a scalar by merges and
// ignored by deltas.
type Raw json.RawMessage

func (Raw) docValue() {}

// Document is a flat map of field name to Value.
type Document map[string]Value

// SortedKeys returns the document's field names in lexical order.
func (d Document) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the document. A nil document clones to an
// empty one.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case List:
		cp := make(List, len(val))
		copy(cp, val)
		return cp
	case Raw:
		cp := make(Raw, len(val))
		copy(cp, val)
		return cp
	default:
		return v
	}
}

// Equal reports whether two documents hold the same fields and values.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Raw:
		bv, ok := b.(Raw)
		return ok && bytes.Equal(compactRaw(av), compactRaw(bv))
	default:
		return a == nil && b == nil
	}
}

func compactRaw(r Raw) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, r); err != nil {
		return r
	}
	return buf.Bytes()
}

// Strings renders a value as a list of strings, used when reporting
// merge conflicts.
func Strings(v Value) []string {
	switch val := v.(type) {
	case Text:
		return []string{string(val)}
	case List:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case Raw:
		return []string{string(compactRaw(val))}
	default:
		return []string{}
	}
}

// Plain converts the document to plain Go values (string, []string, any),
// suitable for encoders that do not know about Value.
func (d Document) Plain() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		switch val := v.(type) {
		case Text:
			out[k] = string(val)
		case List:
			list := make([]string, len(val))
			copy(list, val)
			out[k] = list
		case Raw:
			var decoded any
			if err := json.Unmarshal(val, &decoded); err == nil {
				out[k] = decoded
			}
		}
	}
	return out
}

// MarshalJSON encodes the document with sorted keys and without HTML
// escaping, so stored snapshots are stable and readable.
func (d Document) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d))
	for k, v := range d {
		switch val := v.(type) {
		case Text:
			m[k] = string(val)
		case List:
			if val == nil {
				m[k] = []string{}
			} else {
				m[k] = []string(val)
			}
		case Raw:
			if len(val) == 0 {
				m[k] = json.RawMessage("null")
			} else {
				m[k] = json.RawMessage(val)
			}
		case nil:
			m[k] = nil
		default:
			return nil, fmt.Errorf("document field %q: unsupported value %T", k, v)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a JSON object into a Document. Strings become Text,
// arrays of strings become List, anything else is kept as Raw.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = make(Document, len(raw))
	for k, v := range raw {
		(*d)[k] = decodeValue(v)
	}
	return nil
}

func decodeValue(data json.RawMessage) Value {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Raw("null")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return Text(s)
		}
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err == nil {
			if list == nil {
				list = []string{}
			}
			return List(list)
		}
	}

	cp := make(Raw, len(trimmed))
	copy(cp, trimmed)
	return cp
}

// Parse decodes a JSON document.
func Parse(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if d == nil {
		d = Document{}
	}
	return d, nil
}
