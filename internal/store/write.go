package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/ident"
)

// LegacyMigrationMessage is the message of the commit MigrateFromLegacy
// writes.
const LegacyMigrationMessage = "Migrated from legacy storage"

// Commit records snapshot as the new head of (kind, branch).
//
// The branch row is created if absent. The delta is computed against the
// current head's snapshot (or the empty document). A fresh hash is derived
// from kind, branch, parent and a random nonce, so committing unchanged
// content still produces a distinct, auditable commit. The insert and the
// head move happen in one transaction. An empty branch means "main"; an
// empty confidence means MEDIUM.
func (s *Store) Commit(
	ctx context.Context,
	kind, branch string,
	snapshot doc.Document,
	message string,
	confidence doc.Confidence,
) (*Commit, error) {
	var c *Commit
	err := s.inTx(ctx, "commit", func(tx *sql.Tx) error {
		var err error
		c, err = s.commitTx(ctx, tx, kind, branchOrMain(branch), snapshot, message, confidence)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateBranch creates branch name for kind from the head of branch from.
//
// If the source has a head, its snapshot is copied into a new commit on
// the new branch with a null parent: branch history does not chain to the
// source's commit graph. If the source has no head, the branch is created
// empty. Returns ErrBranchExists if (kind, name) already exists.
func (s *Store) CreateBranch(ctx context.Context, kind, name, from string) (*Branch, error) {
	name = branchOrMain(name)
	from = branchOrMain(from)

	var b *Branch
	err := s.inTx(ctx, "create branch", func(tx *sql.Tx) error {
		_, err := readBranch(ctx, tx, s.logger, kind, name)
		if err == nil {
			return fmt.Errorf("%s/%s: %w", kind, name, ErrBranchExists)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		source, err := headCommit(ctx, tx, s.logger, kind, from)
		if err != nil {
			return err
		}

		if source == nil {
			if err := ensureBranch(ctx, tx, kind, name, s.timestamp()); err != nil {
				return err
			}
		} else {
			message := fmt.Sprintf("Create branch '%s' from '%s'", name, from)
			if _, err := s.commitTx(ctx, tx, kind, name, source.Snapshot, message, source.Confidence); err != nil {
				return err
			}
		}

		b, err = readBranch(ctx, tx, s.logger, kind, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Merge unions source's head snapshot into target and commits the result
// on target with the source head's confidence.
//
// If source has no head the result has Success false and nothing is
// written. Scalar conflicts are reported but never block the merge; the
// target's value is kept. The merge commit's only parent is target's
// previous head.
func (s *Store) Merge(ctx context.Context, kind, source, target string) (*MergeResult, error) {
	source = branchOrMain(source)
	target = branchOrMain(target)

	result := &MergeResult{Conflicts: []doc.Conflict{}}
	err := s.inTx(ctx, "merge", func(tx *sql.Tx) error {
		src, err := headCommit(ctx, tx, s.logger, kind, source)
		if err != nil {
			return err
		}
		if src == nil {
			return nil
		}

		base := doc.Document{}
		tgt, err := headCommit(ctx, tx, s.logger, kind, target)
		if err != nil {
			return err
		}
		if tgt != nil {
			base = tgt.Snapshot
		}

		merged, conflicts := doc.MergeDocuments(base, src.Snapshot, s.now())
		message := fmt.Sprintf("Merge '%s' into '%s'", source, target)
		c, err := s.commitTx(ctx, tx, kind, target, merged, message, src.Confidence)
		if err != nil {
			return err
		}

		result.Success = true
		result.CommitHash = c.Hash
		result.Conflicts = conflicts
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Conflicts) > 0 {
		s.logger.Info("merge completed with conflicts",
			"kind", kind,
			"source", source,
			"target", target,
			"conflicts", len(result.Conflicts),
		)
	}
	return result, nil
}

// Rollback restores the snapshot stored at toHash by committing a copy of
// it on the branch that commit belongs to. History is never truncated.
//
// Hashes share one namespace across kinds, so a commit of a different kind
// is treated as missing. Returns ErrNotFound in both cases.
func (s *Store) Rollback(ctx context.Context, kind, toHash string) (*Commit, error) {
	var c *Commit
	err := s.inTx(ctx, "rollback", func(tx *sql.Tx) error {
		target, err := commitByHash(ctx, tx, s.logger, toHash)
		if err != nil {
			return err
		}
		if target == nil || target.Kind != kind {
			return fmt.Errorf("commit %s for kind %q: %w", toHash, kind, ErrNotFound)
		}

		message := "Rollback to " + toHash
		c, err = s.commitTx(ctx, tx, kind, target.Branch, target.Snapshot, message, target.Confidence)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteBranch removes a branch and all of its commits in one transaction.
// Deleting "main" is refused (false, nil). Returns whether any row was
// deleted.
func (s *Store) DeleteBranch(ctx context.Context, kind, name string) (bool, error) {
	if name == MainBranch || name == "" {
		return false, nil
	}

	var deleted int64
	err := s.inTx(ctx, "delete branch", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM commits WHERE kind = ? AND branch_name = ?
		`, kind, name)
		if err != nil {
			return fmt.Errorf("delete commits: %w", err)
		}
		commits, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		res, err = tx.ExecContext(ctx, `
			DELETE FROM branches WHERE kind = ? AND branch_name = ?
		`, kind, name)
		if err != nil {
			return fmt.Errorf("delete branch row: %w", err)
		}
		branches, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		deleted = commits + branches
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted > 0 {
		s.logger.Info("branch deleted", "kind", kind, "branch", name, "rows", deleted)
	}
	return deleted > 0, nil
}

// MigrateFromLegacy bootstraps history for a document that had no
// versioning by committing it to main with MEDIUM confidence.
func (s *Store) MigrateFromLegacy(ctx context.Context, kind string, document doc.Document) (*Commit, error) {
	return s.Commit(ctx, kind, MainBranch, document, LegacyMigrationMessage, doc.ConfidenceMedium)
}

// inTx runs fn in a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit tx: %w", op, err)
	}
	return nil
}

// commitTx is the shared write path of Commit, CreateBranch, Merge and
// Rollback: read head, diff, insert commit, move head.
func (s *Store) commitTx(
	ctx context.Context,
	tx *sql.Tx,
	kind, branch string,
	snapshot doc.Document,
	message string,
	confidence doc.Confidence,
) (*Commit, error) {
	now := s.timestamp()
	if err := ensureBranch(ctx, tx, kind, branch, now); err != nil {
		return nil, err
	}

	head, err := headCommit(ctx, tx, s.logger, kind, branch)
	if err != nil {
		return nil, err
	}
	old := doc.Document{}
	var parent string
	if head != nil {
		old = head.Snapshot
		parent = head.Hash
	}

	if confidence == "" {
		confidence = doc.ConfidenceMedium
	}

	hash, err := ident.CommitHash(kind, branch, parent, s.nonces.Generate())
	if err != nil {
		return nil, err
	}

	c := &Commit{
		Hash:       hash,
		Kind:       kind,
		Branch:     branch,
		ParentHash: parent,
		Delta:      doc.ComputeDelta(old, snapshot),
		Snapshot:   snapshot.Clone(),
		Message:    message,
		Confidence: confidence,
		CreatedAt:  parseTimestamp(s.logger, hash, now),
	}

	seq, err := insertCommit(ctx, tx, c, now)
	if err != nil {
		return nil, err
	}
	c.Seq = seq

	if _, err := tx.ExecContext(ctx, `
		UPDATE branches SET head_commit_hash = ?
		WHERE kind = ? AND branch_name = ?
	`, hash, kind, branch); err != nil {
		return nil, fmt.Errorf("move head: %w", err)
	}

	s.logger.Debug("commit written",
		"kind", kind,
		"branch", branch,
		"hash", hash,
		"parent", parent,
		"added", c.Delta.AddedCount(),
		"removed", c.Delta.RemovedCount(),
	)
	return c, nil
}

// ensureBranch creates the branch row with a null head if it is missing.
func ensureBranch(ctx context.Context, tx *sql.Tx, kind, branch, createdAt string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO branches (kind, branch_name, head_commit_hash, created_at)
		VALUES (?, ?, NULL, ?)
		ON CONFLICT(kind, branch_name) DO NOTHING
	`, kind, branch, createdAt)
	if err != nil {
		return fmt.Errorf("ensure branch: %w", err)
	}
	return nil
}

// insertCommit writes the commit row and returns its seq.
func insertCommit(ctx context.Context, tx *sql.Tx, c *Commit, createdAt string) (int64, error) {
	deltaJSON, err := marshalDelta(c.Delta)
	if err != nil {
		return 0, err
	}
	snapshotJSON, err := marshalSnapshot(c.Snapshot)
	if err != nil {
		return 0, err
	}

	var parent sql.NullString
	if c.ParentHash != "" {
		parent = sql.NullString{String: c.ParentHash, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commits
		(hash, kind, branch_name, parent_hash, delta, snapshot, message, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Hash,
		c.Kind,
		c.Branch,
		parent,
		deltaJSON,
		snapshotJSON,
		c.Message,
		string(c.Confidence),
		createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert commit: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return seq, nil
}
