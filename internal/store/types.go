package store

import (
	"errors"
	"time"

	"github.com/roach88/snapvault/internal/doc"
)

// MainBranch is the default branch. It is created lazily and can never be
// deleted.
const MainBranch = "main"

// DefaultLogLimit is the number of log entries returned when no limit is
// given.
const DefaultLogLimit = 50

// Sentinel errors for expected conditions.
var (
	// ErrNotFound is returned when a branch, head or commit does not exist
	// (or, for Rollback, belongs to a different kind).
	ErrNotFound = errors.New("not found")

	// ErrBranchExists is returned by CreateBranch when (kind, name) exists.
	ErrBranchExists = errors.New("branch already exists")
)

// Branch is a named line of commits for one document kind.
type Branch struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	HeadHash  string    `json:"head_hash,omitempty"` // empty when the branch has no commits
	CreatedAt time.Time `json:"created_at"`
}

// BranchInfo is a branch plus its commit count, as returned by ListBranches.
type BranchInfo struct {
	Branch
	CommitCount int `json:"commit_count"`
}

// Commit is an immutable record of a full document snapshot.
type Commit struct {
	Seq        int64          `json:"seq"`
	Hash       string         `json:"hash"`
	Kind       string         `json:"kind"`
	Branch     string         `json:"branch"`
	ParentHash string         `json:"parent_hash,omitempty"` // empty for a branch's first commit
	Delta      doc.Delta      `json:"delta"`
	Snapshot   doc.Document   `json:"snapshot"`
	Message    string         `json:"message"`
	Confidence doc.Confidence `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
}

// LogEntry summarizes a commit for history views.
type LogEntry struct {
	Hash         string         `json:"hash"`
	ParentHash   string         `json:"parent_hash,omitempty"`
	Message      string         `json:"message"`
	Confidence   doc.Confidence `json:"confidence"`
	CreatedAt    time.Time      `json:"created_at"`
	DeltaAdded   int            `json:"delta_added"`
	DeltaRemoved int            `json:"delta_removed"`
}

// MergeResult is the outcome of Merge. Success is false only when the
// source branch has no head; conflicts never make a merge fail.
type MergeResult struct {
	Success    bool           `json:"success"`
	CommitHash string         `json:"commit_hash,omitempty"`
	Conflicts  []doc.Conflict `json:"conflicts"`
}

// Summary converts a commit to its log entry.
func (c *Commit) Summary() LogEntry {
	return LogEntry{
		Hash:         c.Hash,
		ParentHash:   c.ParentHash,
		Message:      c.Message,
		Confidence:   c.Confidence,
		CreatedAt:    c.CreatedAt,
		DeltaAdded:   c.Delta.AddedCount(),
		DeltaRemoved: c.Delta.RemovedCount(),
	}
}

func branchOrMain(name string) string {
	if name == "" {
		return MainBranch
	}
	return name
}
