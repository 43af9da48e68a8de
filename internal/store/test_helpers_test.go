package store

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/testutil"
)

const testKind = "profile"

var testEpoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// createTestStore creates a file-backed store with a deterministic clock
// and nonce sequence.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewDeterministicClockAt(testEpoch, time.Second)
	defaults := []Option{
		WithClock(clock.Now),
		WithNonceGenerator(ident.NewFixedGenerator("n")),
	}
	s, err := Open(path, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// captureLogger returns a logger writing text records into the returned
// buffer.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), &buf
}

func skills(items ...string) doc.Document {
	return doc.Document{"skills": doc.List(items)}
}
