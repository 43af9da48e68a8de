package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/snapvault/internal/doc"
)

// marshalSnapshot converts a document to JSON TEXT for storage.
// Keys are sorted and HTML is not escaped, so identical documents are
// stored byte-identically.
func marshalSnapshot(d doc.Document) (string, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := d.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// marshalDelta converts a delta to JSON TEXT for storage.
func marshalDelta(d doc.Delta) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d.Normalize()); err != nil {
		return "", fmt.Errorf("marshal delta: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// unmarshalSnapshot parses stored snapshot TEXT. Corrupt data is logged
// and replaced with an empty document.
func unmarshalSnapshot(logger *slog.Logger, hash, data string) doc.Document {
	if data == "" || data == "{}" {
		return doc.Document{}
	}
	d, err := doc.Parse([]byte(data))
	if err != nil {
		logger.Warn("corrupt snapshot, using empty document",
			"hash", hash,
			"error", err,
		)
		return doc.Document{}
	}
	return d
}

// unmarshalDelta parses stored delta TEXT. Corrupt data is logged and
// replaced with an empty delta.
func unmarshalDelta(logger *slog.Logger, hash, data string) doc.Delta {
	if data == "" || data == "{}" {
		return doc.NewDelta()
	}
	var d doc.Delta
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		logger.Warn("corrupt delta, using empty delta",
			"hash", hash,
			"error", err,
		)
		return doc.NewDelta()
	}
	return d.Normalize()
}

// parseTimestamp parses a stored created_at value. Unparseable values are
// logged and returned as the zero time.
func parseTimestamp(logger *slog.Logger, ref, value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		logger.Warn("unparseable timestamp",
			"ref", ref,
			"value", value,
		)
		return time.Time{}
	}
	return ts
}
