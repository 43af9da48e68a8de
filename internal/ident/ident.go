// Package ident generates commit identifiers.
//
// A commit hash is an opaque, globally unique identifier derived from the
// commit's kind, branch, parent hash and a random nonce. It is NOT a
// content hash: committing the same snapshot twice yields two different
// hashes, so every commit (including no-op commits) is a distinct audit
// entry. Hashes share one namespace across all document kinds.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/snapvault/internal/doc"
)

// DomainCommit prefixes every commit hash input. The version suffix leaves
// room for a future identifier scheme.
const DomainCommit = "snapvault/commit/v1"

// Generator produces nonces for commit identifiers.
type Generator interface {
	Generate() string
}

// CommitHash derives a commit identifier.
// Format: hex(SHA256(domain + 0x00 + canonical JSON of the inputs)).
func CommitHash(kind, branch, parentHash, nonce string) (string, error) {
	canonical, err := doc.MarshalCanonical(map[string]string{
		"kind":        kind,
		"branch":      branch,
		"parent_hash": parentHash,
		"nonce":       nonce,
	})
	if err != nil {
		return "", fmt.Errorf("CommitHash: failed to marshal: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainCommit))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Short abbreviates a hash for display.
func Short(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// UUIDv7Generator produces time-sortable UUIDv7 nonces.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined nonces in order. Used by tests and
// the scenario harness for reproducible hashes.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	nonces []string
	idx    int
}

// NewFixedGenerator creates a generator that returns nonces in order.
func NewFixedGenerator(nonces ...string) *FixedGenerator {
	return &FixedGenerator{nonces: nonces}
}

// Generate returns the next nonce. Once the list is exhausted it keeps
// producing "<last>-<n>" so long scenarios never collide.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() { g.idx++ }()
	if g.idx < len(g.nonces) {
		return g.nonces[g.idx]
	}
	base := "nonce"
	if len(g.nonces) > 0 {
		base = g.nonces[len(g.nonces)-1]
	}
	return fmt.Sprintf("%s-%d", base, g.idx)
}
