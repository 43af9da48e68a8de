package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/store"
)

// Versioner is the part of the store a Pipeline needs.
type Versioner interface {
	GetHeadSnapshot(ctx context.Context, kind, branch string) (doc.Document, error)
	Commit(ctx context.Context, kind, branch string, snapshot doc.Document, message string, confidence doc.Confidence) (*store.Commit, error)
	Merge(ctx context.Context, kind, source, target string) (*store.MergeResult, error)
	Rollback(ctx context.Context, kind, toHash string) (*store.Commit, error)
	MigrateFromLegacy(ctx context.Context, kind string, document doc.Document) (*store.Commit, error)
}

// Pipeline reads and writes one (kind, branch) through a cached head
// snapshot.
//
// Thread-safety: safe for concurrent use.
type Pipeline struct {
	v      Versioner
	kind   string
	branch string
	schema *Schema
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	cached doc.Document // nil when invalid
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBranch sets the branch the pipeline reads and writes. Default "main".
func WithBranch(branch string) Option {
	return func(p *Pipeline) {
		if branch != "" {
			p.branch = branch
		}
	}
}

// WithSchema validates every saved document against schema.
func WithSchema(schema *Schema) Option {
	return func(p *Pipeline) {
		p.schema = schema
	}
}

// WithClock sets the time source used to stamp lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline for kind.
func New(v Versioner, kind string, opts ...Option) *Pipeline {
	p := &Pipeline{
		v:      v,
		kind:   kind,
		branch: store.MainBranch,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind returns the document kind.
func (p *Pipeline) Kind() string { return p.kind }

// Branch returns the branch the pipeline is bound to.
func (p *Pipeline) Branch() string { return p.branch }

// Snapshot returns a copy of the head snapshot, reading through the cache.
// A branch with no head yields an empty document.
func (p *Pipeline) Snapshot(ctx context.Context) (doc.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return p.cached.Clone(), nil
	}

	snap, err := p.v.GetHeadSnapshot(ctx, p.kind, p.branch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		snap = doc.Document{}
	case err != nil:
		return nil, fmt.Errorf("read %s/%s: %w", p.kind, p.branch, err)
	}

	p.cached = snap
	return snap.Clone(), nil
}

// Save validates d (if a schema is set), stamps lastUpdated and commits it
// as the new head.
func (p *Pipeline) Save(ctx context.Context, d doc.Document, message string, confidence doc.Confidence) (*store.Commit, error) {
	if p.schema != nil {
		if err := p.schema.Validate(d); err != nil {
			return nil, err
		}
	}

	snap := d.Clone()
	if snap == nil {
		snap = doc.Document{}
	}
	snap[doc.LastUpdated] = doc.Text(p.now().UTC().Format(doc.TimestampLayout))

	defer p.Invalidate()
	c, err := p.v.Commit(ctx, p.kind, p.branch, snap, message, confidence)
	if err != nil {
		return nil, fmt.Errorf("save %s/%s: %w", p.kind, p.branch, err)
	}
	return c, nil
}

// Merge merges source into the pipeline's branch.
func (p *Pipeline) Merge(ctx context.Context, source string) (*store.MergeResult, error) {
	defer p.Invalidate()
	res, err := p.v.Merge(ctx, p.kind, source, p.branch)
	if err != nil {
		return nil, fmt.Errorf("merge %s into %s: %w", source, p.branch, err)
	}
	if len(res.Conflicts) > 0 {
		p.logger.Info("merge kept target values",
			"kind", p.kind,
			"branch", p.branch,
			"conflicts", len(res.Conflicts),
		)
	}
	return res, nil
}

// Rollback restores the snapshot at hash. The commit lands on the branch
// hash belongs to, which may not be the pipeline's.
func (p *Pipeline) Rollback(ctx context.Context, hash string) (*store.Commit, error) {
	defer p.Invalidate()
	c, err := p.v.Rollback(ctx, p.kind, hash)
	if err != nil {
		return nil, fmt.Errorf("rollback %s: %w", hash, err)
	}
	return c, nil
}

// Migrate bootstraps history from a legacy document. It only writes when
// main has no head yet and reports whether it did.
func (p *Pipeline) Migrate(ctx context.Context, legacy doc.Document) (*store.Commit, bool, error) {
	_, err := p.v.GetHeadSnapshot(ctx, p.kind, store.MainBranch)
	if err == nil {
		return nil, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("migrate %s: %w", p.kind, err)
	}

	defer p.Invalidate()
	c, err := p.v.MigrateFromLegacy(ctx, p.kind, legacy)
	if err != nil {
		return nil, false, fmt.Errorf("migrate %s: %w", p.kind, err)
	}
	p.logger.Info("migrated legacy document", "kind", p.kind, "hash", c.Hash)
	return c, true, nil
}

// Invalidate drops the cached snapshot.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
