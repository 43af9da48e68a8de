package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapvault/internal/doc"
)

func TestCommit_FirstCommit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, err := s.Commit(ctx, testKind, "", skills("go", "sql"), "seed", doc.ConfidenceHigh)
	require.NoError(t, err)

	assert.Len(t, c.Hash, 64)
	assert.Equal(t, MainBranch, c.Branch)
	assert.Empty(t, c.ParentHash)
	assert.Equal(t, "seed", c.Message)
	assert.Equal(t, doc.ConfidenceHigh, c.Confidence)
	assert.Equal(t, testEpoch, c.CreatedAt)
	assert.Equal(t, map[string][]string{"skills": {"go", "sql"}}, c.Delta.Added)
	assert.Empty(t, c.Delta.Removed)

	b, err := s.SwitchBranch(ctx, testKind, MainBranch)
	require.NoError(t, err)
	assert.Equal(t, c.Hash, b.HeadHash)

	// Stored row matches the returned commit
	stored, err := s.GetCommit(ctx, c.Hash)
	require.NoError(t, err)
	assert.Equal(t, c.Seq, stored.Seq)
	assert.True(t, c.Snapshot.Equal(stored.Snapshot))
	assert.Equal(t, c.Delta, stored.Delta)
	assert.Equal(t, c.CreatedAt, stored.CreatedAt)
}

func TestCommit_DefaultsConfidenceToMedium(t *testing.T) {
	s := createTestStore(t)

	c, err := s.Commit(context.Background(), testKind, "", skills("go"), "seed", "")
	require.NoError(t, err)
	assert.Equal(t, doc.ConfidenceMedium, c.Confidence)
}

func TestCommit_MonotonicHead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	prev := ""
	for i := 0; i < 5; i++ {
		c, err := s.Commit(ctx, testKind, MainBranch, skills(fmt.Sprintf("s%d", i)), "step", doc.ConfidenceMedium)
		require.NoError(t, err)
		assert.Equal(t, prev, c.ParentHash, "commit %d parent", i)

		head, err := s.GetHeadCommit(ctx, testKind, MainBranch)
		require.NoError(t, err)
		assert.Equal(t, c.Hash, head.Hash, "commit %d head", i)

		prev = c.Hash
	}
}

func TestCommit_UnchangedContentGetsNewHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Commit(ctx, testKind, "", skills("go"), "one", doc.ConfidenceMedium)
	require.NoError(t, err)
	second, err := s.Commit(ctx, testKind, "", skills("go"), "two", doc.ConfidenceMedium)
	require.NoError(t, err)

	assert.NotEqual(t, first.Hash, second.Hash)
	assert.True(t, second.Delta.IsEmpty())

	entries, err := s.Log(ctx, testKind, "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCommit_DeltaIsCaseInsensitive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Commit(ctx, testKind, "", doc.Document{"a": doc.List{"X", "y"}}, "old", doc.ConfidenceMedium)
	require.NoError(t, err)
	c, err := s.Commit(ctx, testKind, "", doc.Document{"a": doc.List{"x", "Z"}}, "new", doc.ConfidenceMedium)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"a": {"Z"}}, c.Delta.Added)
	assert.Equal(t, map[string][]string{"a": {"y"}}, c.Delta.Removed)
}

func TestCommit_ScalarsAreNotDiffed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Commit(ctx, testKind, "", doc.Document{"name": doc.Text("Ada")}, "old", doc.ConfidenceMedium)
	require.NoError(t, err)
	c, err := s.Commit(ctx, testKind, "", doc.Document{"name": doc.Text("Grace")}, "new", doc.ConfidenceMedium)
	require.NoError(t, err)

	assert.True(t, c.Delta.IsEmpty())
	head, err := s.GetHeadSnapshot(ctx, testKind, "")
	require.NoError(t, err)
	assert.Equal(t, doc.Text("Grace"), head["name"])
}

func TestCommit_SnapshotIsCopied(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snap := skills("go")
	c, err := s.Commit(ctx, testKind, "", snap, "seed", doc.ConfidenceMedium)
	require.NoError(t, err)

	snap["skills"] = doc.List{"mutated"}
	assert.Equal(t, doc.List{"go"}, c.Snapshot["skills"])
}

func TestCommit_BranchIsolation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mainCommit, err := s.Commit(ctx, testKind, MainBranch, skills("go"), "main", doc.ConfidenceMedium)
	require.NoError(t, err)
	featureCommit, err := s.Commit(ctx, testKind, "feature", skills("rust"), "feature", doc.ConfidenceMedium)
	require.NoError(t, err)

	mainHead, err := s.GetHeadCommit(ctx, testKind, MainBranch)
	require.NoError(t, err)
	assert.Equal(t, mainCommit.Hash, mainHead.Hash)

	_, err = s.Commit(ctx, testKind, MainBranch, skills("go", "sql"), "main 2", doc.ConfidenceMedium)
	require.NoError(t, err)

	featureHead, err := s.GetHeadCommit(ctx, testKind, "feature")
	require.NoError(t, err)
	assert.Equal(t, featureCommit.Hash, featureHead.Hash)

	// Kinds are partitions too
	_, err = s.GetHeadCommit(ctx, "resume", MainBranch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommit_ConcurrentWritersChain(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Commit(ctx, testKind, MainBranch, skills(fmt.Sprintf("w%d", i)), "concurrent", doc.ConfidenceMedium)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := s.Log(ctx, testKind, MainBranch, 0)
	require.NoError(t, err)
	require.Len(t, entries, writers)

	// Newest first: each entry's parent is the next (older) entry
	for i := 0; i < len(entries)-1; i++ {
		assert.Equal(t, entries[i+1].Hash, entries[i].ParentHash, "entry %d", i)
	}
	assert.Empty(t, entries[len(entries)-1].ParentHash)
}

func TestCreateBranch_CopiesSourceHead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src, err := s.Commit(ctx, testKind, "", skills("go", "sql"), "seed", doc.ConfidenceHigh)
	require.NoError(t, err)

	b, err := s.CreateBranch(ctx, testKind, "feature", "")
	require.NoError(t, err)
	assert.Equal(t, "feature", b.Name)
	require.NotEmpty(t, b.HeadHash)
	assert.NotEqual(t, src.Hash, b.HeadHash)

	head, err := s.GetHeadCommit(ctx, testKind, "feature")
	require.NoError(t, err)
	assert.Empty(t, head.ParentHash)
	assert.Equal(t, "Create branch 'feature' from 'main'", head.Message)
	assert.Equal(t, doc.ConfidenceHigh, head.Confidence)
	assert.True(t, src.Snapshot.Equal(head.Snapshot))
	assert.Equal(t, map[string][]string{"skills": {"go", "sql"}}, head.Delta.Added)
}

func TestCreateBranch_EmptySource(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b, err := s.CreateBranch(ctx, testKind, "draft", MainBranch)
	require.NoError(t, err)
	assert.Empty(t, b.HeadHash)

	_, err = s.GetHeadSnapshot(ctx, testKind, "draft")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := s.Log(ctx, testKind, "draft", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateBranch_AlreadyExists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.CreateBranch(ctx, testKind, "feature", "")
	require.NoError(t, err)

	_, err = s.CreateBranch(ctx, testKind, "feature", "")
	assert.ErrorIs(t, err, ErrBranchExists)

	// Same name under another kind is a different branch
	_, err = s.CreateBranch(ctx, "resume", "feature", "")
	assert.NoError(t, err)
}

func TestRollback_RecommitsOldSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	old, err := s.Commit(ctx, testKind, "", skills("go"), "v1", doc.ConfidenceLow)
	require.NoError(t, err)
	_, err = s.Commit(ctx, testKind, "", skills("go", "rust"), "v2", doc.ConfidenceHigh)
	require.NoError(t, err)

	before, err := s.Log(ctx, testKind, "", 0)
	require.NoError(t, err)

	c, err := s.Rollback(ctx, testKind, old.Hash)
	require.NoError(t, err)
	assert.Equal(t, "Rollback to "+old.Hash, c.Message)
	assert.Equal(t, doc.ConfidenceLow, c.Confidence)
	assert.Equal(t, map[string][]string{"skills": {"rust"}}, c.Delta.Removed)

	after, err := s.Log(ctx, testKind, "", 0)
	require.NoError(t, err)
	assert.Greater(t, len(after), len(before))

	head, err := s.GetHeadSnapshot(ctx, testKind, "")
	require.NoError(t, err)
	assert.True(t, old.Snapshot.Equal(head))

	// The rolled-back-to commit is still there
	_, err = s.GetCommit(ctx, old.Hash)
	assert.NoError(t, err)
}

func TestRollback_CommitsOnTargetsBranch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mainCommit, err := s.Commit(ctx, testKind, MainBranch, skills("go"), "main", doc.ConfidenceMedium)
	require.NoError(t, err)
	old, err := s.Commit(ctx, testKind, "feature", skills("rust"), "f1", doc.ConfidenceMedium)
	require.NoError(t, err)
	_, err = s.Commit(ctx, testKind, "feature", skills("zig"), "f2", doc.ConfidenceMedium)
	require.NoError(t, err)

	c, err := s.Rollback(ctx, testKind, old.Hash)
	require.NoError(t, err)
	assert.Equal(t, "feature", c.Branch)

	mainHead, err := s.GetHeadCommit(ctx, testKind, MainBranch)
	require.NoError(t, err)
	assert.Equal(t, mainCommit.Hash, mainHead.Hash)
}

func TestRollback_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, err := s.Commit(ctx, testKind, "", skills("go"), "seed", doc.ConfidenceMedium)
	require.NoError(t, err)

	tests := []struct {
		name string
		kind string
		hash string
	}{
		{"unknown hash", testKind, "deadbeef"},
		{"kind mismatch", "resume", c.Hash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Rollback(ctx, tt.kind, tt.hash)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Nil(t, got)
		})
	}

	entries, err := s.Log(ctx, testKind, "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteBranch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Commit(ctx, testKind, MainBranch, skills("go"), "main", doc.ConfidenceMedium)
	require.NoError(t, err)
	_, err = s.CreateBranch(ctx, testKind, "feature", MainBranch)
	require.NoError(t, err)
	_, err = s.Commit(ctx, testKind, "feature", skills("go", "rust"), "f", doc.ConfidenceMedium)
	require.NoError(t, err)

	deleted, err := s.DeleteBranch(ctx, testKind, "feature")
	require.NoError(t, err)
	assert.True(t, deleted)

	var count int
	require.NoError(t, s.db.QueryRow(
		"SELECT COUNT(*) FROM commits WHERE kind = ? AND branch_name = ?", testKind, "feature",
	).Scan(&count))
	assert.Zero(t, count)

	_, err = s.SwitchBranch(ctx, testKind, "feature")
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = s.DeleteBranch(ctx, testKind, "feature")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteBranch_MainIsProtected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Commit(ctx, testKind, MainBranch, skills("go"), "main", doc.ConfidenceMedium)
	require.NoError(t, err)

	for _, name := range []string{MainBranch, ""} {
		deleted, err := s.DeleteBranch(ctx, testKind, name)
		require.NoError(t, err)
		assert.False(t, deleted)
	}

	entries, err := s.Log(ctx, testKind, MainBranch, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMigrateFromLegacy(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	legacy := doc.Document{
		"name":   doc.Text("Ada"),
		"skills": doc.List{"math"},
	}
	c, err := s.MigrateFromLegacy(ctx, testKind, legacy)
	require.NoError(t, err)

	assert.Equal(t, MainBranch, c.Branch)
	assert.Equal(t, LegacyMigrationMessage, c.Message)
	assert.Equal(t, doc.ConfidenceMedium, c.Confidence)

	head, err := s.GetHeadSnapshot(ctx, testKind, "")
	require.NoError(t, err)
	assert.True(t, legacy.Equal(head))
}

func TestCommit_LogsDebugRecord(t *testing.T) {
	logger, buf := captureLogger()
	s := createTestStore(t, WithLogger(logger))

	_, err := s.Commit(context.Background(), testKind, "", skills("go"), "seed", doc.ConfidenceMedium)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "commit written")
	assert.Contains(t, buf.String(), "kind="+testKind)
}
