package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/ident"
	"github.com/roach88/snapvault/internal/store"
	"github.com/roach88/snapvault/internal/testutil"
)

// Harness executes one scenario against its own store.
type Harness struct {
	store  *store.Store
	kind   string
	labels *labeler
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Domain outcomes (missing commits, existing branches, empty merge
// sources) are recorded in the trace; storage failures abort the run.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewDeterministicClock().Now),
		store.WithNonceGenerator(ident.NewFixedGenerator()),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	kind := scenario.Kind
	if kind == "" {
		kind = DefaultKind
	}

	h := &Harness{
		store:  st,
		kind:   kind,
		labels: newLabeler(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op(), err)
		}
		ev.Step = i + 1
		result.AddTrace(ev)

		h.logger.Info("step completed",
			"step", ev.Step,
			"op", ev.Op,
			"outcome", ev.Outcome,
			"commit", ev.Commit,
		)
	}

	actx := &AssertionContext{
		Store:  st,
		Ctx:    ctx,
		Kind:   kind,
		Labels: h.labels,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	kind := h.kind
	if step.Kind != "" {
		kind = step.Kind
	}
	ev := TraceEvent{Op: step.Op(), Kind: kind, Outcome: OutcomeOK}

	switch {
	case step.Commit != nil:
		return h.commit(ctx, ev, step.Commit)

	case step.Branch != nil:
		ev.Branch = step.Branch.Name
		b, err := h.store.CreateBranch(ctx, kind, step.Branch.Name, step.Branch.From)
		if errors.Is(err, store.ErrBranchExists) {
			ev.Outcome = OutcomeExists
			return ev, nil
		}
		if err != nil {
			return ev, err
		}
		if b.HeadHash == "" {
			return ev, nil
		}
		c, err := h.store.GetCommit(ctx, b.HeadHash)
		if err != nil {
			return ev, err
		}
		return h.withCommit(ev, c), nil

	case step.Merge != nil:
		target := step.Merge.Target
		if target == "" {
			target = store.MainBranch
		}
		ev.Branch = target
		res, err := h.store.Merge(ctx, kind, step.Merge.Source, target)
		if err != nil {
			return ev, err
		}
		if !res.Success {
			ev.Outcome = OutcomeNoSource
			return ev, nil
		}
		c, err := h.store.GetCommit(ctx, res.CommitHash)
		if err != nil {
			return ev, err
		}
		ev = h.withCommit(ev, c)
		if len(res.Conflicts) > 0 {
			ev.Conflicts = res.Conflicts
		}
		return ev, nil

	case step.Rollback != nil:
		c, err := h.store.Rollback(ctx, kind, h.labels.resolve(step.Rollback.To))
		if errors.Is(err, store.ErrNotFound) {
			ev.Outcome = OutcomeNotFound
			return ev, nil
		}
		if err != nil {
			return ev, err
		}
		ev.Branch = c.Branch
		return h.withCommit(ev, c), nil

	case step.DeleteBranch != nil:
		ev.Branch = step.DeleteBranch.Name
		deleted, err := h.store.DeleteBranch(ctx, kind, step.DeleteBranch.Name)
		if err != nil {
			return ev, err
		}
		if !deleted {
			ev.Outcome = OutcomeRefused
		}
		return ev, nil

	case step.Migrate != nil:
		d, err := toDocument(step.Migrate.Snapshot)
		if err != nil {
			return ev, err
		}
		c, err := h.store.MigrateFromLegacy(ctx, kind, d)
		if err != nil {
			return ev, err
		}
		ev.Branch = c.Branch
		return h.withCommit(ev, c), nil
	}

	return ev, fmt.Errorf("no operation")
}

func (h *Harness) commit(ctx context.Context, ev TraceEvent, step *CommitStep) (TraceEvent, error) {
	d, err := toDocument(step.Snapshot)
	if err != nil {
		return ev, err
	}

	var confidence doc.Confidence
	if step.Confidence != "" {
		confidence, err = doc.ParseConfidence(step.Confidence)
		if err != nil {
			return ev, err
		}
	}

	c, err := h.store.Commit(ctx, ev.Kind, step.Branch, d, step.Message, confidence)
	if err != nil {
		return ev, err
	}
	ev.Branch = c.Branch
	return h.withCommit(ev, c), nil
}

// withCommit labels c and copies its summary into ev.
func (h *Harness) withCommit(ev TraceEvent, c *store.Commit) TraceEvent {
	ev.Commit = h.labels.label(c.Hash)
	if c.ParentHash != "" {
		ev.Parent = h.labels.label(c.ParentHash)
	}
	ev.Message = h.labels.relabel(c.Message)
	ev.Added = c.Delta.AddedCount()
	ev.Removed = c.Delta.RemovedCount()
	return ev
}

// labeler maps commit hashes to stable labels in first-seen order.
type labeler struct {
	byHash  map[string]string
	byLabel map[string]string
	order   []string
}

func newLabeler() *labeler {
	return &labeler{
		byHash:  map[string]string{},
		byLabel: map[string]string{},
	}
}

func (l *labeler) label(hash string) string {
	if lbl, ok := l.byHash[hash]; ok {
		return lbl
	}
	lbl := "c" + strconv.Itoa(len(l.order)+1)
	l.byHash[hash] = lbl
	l.byLabel[lbl] = hash
	l.order = append(l.order, hash)
	return lbl
}

// resolve maps a label back to its hash. Anything else is returned as is.
func (l *labeler) resolve(ref string) string {
	if hash, ok := l.byLabel[ref]; ok {
		return hash
	}
	return ref
}

// relabel replaces every known hash in s with its label.
func (l *labeler) relabel(s string) string {
	for _, hash := range l.order {
		s = strings.ReplaceAll(s, hash, l.byHash[hash])
	}
	return s
}

// toDocument converts YAML-decoded values to a document. Strings become
// Text, all-string sequences become List and anything else is kept as Raw
// JSON.
func toDocument(m map[string]any) (doc.Document, error) {
	d := make(doc.Document, len(m))
	for k, v := range m {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		d[k] = val
	}
	return d, nil
}

func toValue(v any) (doc.Value, error) {
	switch val := v.(type) {
	case string:
		return doc.Text(val), nil
	case []any:
		list := make(doc.List, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return rawValue(v)
			}
			list = append(list, s)
		}
		return list, nil
	}
	return rawValue(v)
}

func rawValue(v any) (doc.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported value %T: %w", v, err)
	}
	return doc.Raw(data), nil
}
