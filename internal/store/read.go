package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/snapvault/internal/doc"
)

const commitColumns = `c.seq, c.hash, c.kind, c.branch_name, c.parent_hash, c.delta, c.snapshot, c.message, c.confidence, c.created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// SwitchBranch returns the branch row for (kind, name).
// It is read-only: the store keeps no "current branch" between calls.
// Returns ErrNotFound if the branch does not exist.
func (s *Store) SwitchBranch(ctx context.Context, kind, name string) (*Branch, error) {
	b, err := readBranch(ctx, s.db, s.logger, kind, branchOrMain(name))
	if err != nil {
		return nil, fmt.Errorf("switch branch: %w", err)
	}
	return b, nil
}

// GetHeadCommit returns the head commit of a branch.
// Returns ErrNotFound if the branch does not exist or has no head.
func (s *Store) GetHeadCommit(ctx context.Context, kind, branch string) (*Commit, error) {
	c, err := headCommit(ctx, s.db, s.logger, kind, branchOrMain(branch))
	if err != nil {
		return nil, fmt.Errorf("get head commit: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("get head commit: %s/%s: %w", kind, branchOrMain(branch), ErrNotFound)
	}
	return c, nil
}

// GetHeadSnapshot returns a deep copy of the branch head's snapshot.
// Returns ErrNotFound if the branch has no head.
func (s *Store) GetHeadSnapshot(ctx context.Context, kind, branch string) (doc.Document, error) {
	c, err := s.GetHeadCommit(ctx, kind, branch)
	if err != nil {
		return nil, err
	}
	return c.Snapshot.Clone(), nil
}

// GetCommit looks a commit up by hash across all kinds.
// Returns ErrNotFound if no commit has that hash.
func (s *Store) GetCommit(ctx context.Context, hash string) (*Commit, error) {
	c, err := commitByHash(ctx, s.db, s.logger, hash)
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("get commit %s: %w", hash, ErrNotFound)
	}
	return c, nil
}

// Log returns up to limit most recent commits on a branch, newest first.
// A limit <= 0 means DefaultLogLimit. Returns an empty slice (not nil) for
// a branch with no commits.
func (s *Store) Log(ctx context.Context, kind, branch string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits c
		WHERE c.kind = ? AND c.branch_name = ?
		ORDER BY c.seq DESC
		LIMIT ?
	`, kind, branchOrMain(branch), limit)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		c, err := scanCommit(rows, s.logger)
		if err != nil {
			return nil, err
		}
		entries = append(entries, c.Summary())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}

	return entries, nil
}

// ListBranches returns every branch of a kind in creation order, with its
// head hash and commit count.
func (s *Store) ListBranches(ctx context.Context, kind string) ([]BranchInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.kind, b.branch_name, b.head_commit_hash, b.created_at,
		       (SELECT COUNT(*) FROM commits c
		        WHERE c.kind = b.kind AND c.branch_name = b.branch_name)
		FROM branches b
		WHERE b.kind = ?
		ORDER BY b.id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	branches := []BranchInfo{}
	for rows.Next() {
		var info BranchInfo
		var head sql.NullString
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Kind, &info.Name, &head, &createdAt, &info.CommitCount); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		info.HeadHash = head.String
		info.CreatedAt = parseTimestamp(s.logger, info.Name, createdAt)
		branches = append(branches, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}

	return branches, nil
}

// ListKinds returns every document kind that has at least one branch.
func (s *Store) ListKinds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT kind FROM branches ORDER BY kind COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	kinds := []string{}
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kinds = append(kinds, kind)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kinds: %w", err)
	}

	return kinds, nil
}

// Diff computes the structural delta between two stored snapshots.
// Returns ErrNotFound if either hash is unknown.
func (s *Store) Diff(ctx context.Context, fromHash, toHash string) (doc.Delta, error) {
	from, err := s.GetCommit(ctx, fromHash)
	if err != nil {
		return doc.Delta{}, fmt.Errorf("diff: %w", err)
	}
	to, err := s.GetCommit(ctx, toHash)
	if err != nil {
		return doc.Delta{}, fmt.Errorf("diff: %w", err)
	}
	return doc.ComputeDelta(from.Snapshot, to.Snapshot), nil
}

// readBranch loads a branch row. Returns ErrNotFound if absent.
func readBranch(ctx context.Context, q querier, logger *slog.Logger, kind, name string) (*Branch, error) {
	var b Branch
	var head sql.NullString
	var createdAt string

	err := q.QueryRowContext(ctx, `
		SELECT id, kind, branch_name, head_commit_hash, created_at
		FROM branches
		WHERE kind = ? AND branch_name = ?
	`, kind, name).Scan(&b.ID, &b.Kind, &b.Name, &head, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("branch %s/%s: %w", kind, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read branch: %w", err)
	}

	b.HeadHash = head.String
	b.CreatedAt = parseTimestamp(logger, name, createdAt)
	return &b, nil
}

// headCommit loads the commit a branch points at. Returns (nil, nil) when
// the branch is missing or has no head.
func headCommit(ctx context.Context, q querier, logger *slog.Logger, kind, branch string) (*Commit, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+commitColumns+`
		FROM branches b
		JOIN commits c ON c.hash = b.head_commit_hash
		WHERE b.kind = ? AND b.branch_name = ?
	`, kind, branch)

	c, err := scanCommit(row, logger)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read head %s/%s: %w", kind, branch, err)
	}
	return c, nil
}

// commitByHash loads a commit by hash. Returns (nil, nil) when absent.
func commitByHash(ctx context.Context, q querier, logger *slog.Logger, hash string) (*Commit, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits c
		WHERE c.hash = ?
	`, hash)

	c, err := scanCommit(row, logger)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

// scanCommit scans a row selected with commitColumns. sql.ErrNoRows is
// returned unwrapped so callers can test for it.
func scanCommit(row rowScanner, logger *slog.Logger) (*Commit, error) {
	var c Commit
	var parent sql.NullString
	var deltaJSON, snapshotJSON, confidence, createdAt string

	if err := row.Scan(
		&c.Seq, &c.Hash, &c.Kind, &c.Branch, &parent,
		&deltaJSON, &snapshotJSON, &c.Message, &confidence, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan commit: %w", err)
	}

	c.ParentHash = parent.String
	c.Confidence = doc.Confidence(confidence)
	c.Delta = unmarshalDelta(logger, c.Hash, deltaJSON)
	c.Snapshot = unmarshalSnapshot(logger, c.Hash, snapshotJSON)
	c.CreatedAt = parseTimestamp(logger, c.Hash, createdAt)
	return &c, nil
}
