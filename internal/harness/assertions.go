package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/snapvault/internal/doc"
	"github.com/roach88/snapvault/internal/store"
)

// AssertionContext gives assertions access to the final store state.
type AssertionContext struct {
	Store  *store.Store
	Ctx    context.Context
	Kind   string
	Labels *labeler
}

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s/%s -> %s", ev.Step, ev.Op, ev.Kind, ev.Branch, ev.Outcome)
		if ev.Commit != "" {
			fmt.Fprintf(&buf, " %s", ev.Commit)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertConflicts:
			err = assertConflicts(result, a)
		case AssertResult:
			err = assertResult(result, a)
		case AssertHeadSnapshot, AssertLogCount, AssertLogMessages, AssertBranchCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, a.Type)
				break
			}
			err = evaluateStateAssertion(actx, result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func evaluateStateAssertion(actx *AssertionContext, result *Result, a Assertion) error {
	kind := actx.Kind
	if a.Kind != "" {
		kind = a.Kind
	}
	branch := a.Branch
	if branch == "" {
		branch = store.MainBranch
	}

	switch a.Type {
	case AssertHeadSnapshot:
		return assertHeadSnapshot(actx, result, kind, branch, a)
	case AssertLogCount:
		entries, err := actx.Store.Log(actx.Ctx, kind, branch, 0)
		if err != nil {
			return err
		}
		if len(entries) != *a.Count {
			return &AssertionError{
				Type:     AssertLogCount,
				Expected: fmt.Sprintf("%d commits on %s/%s", *a.Count, kind, branch),
				Actual:   fmt.Sprintf("%d commits", len(entries)),
				Trace:    result.Trace,
			}
		}
	case AssertLogMessages:
		entries, err := actx.Store.Log(actx.Ctx, kind, branch, 0)
		if err != nil {
			return err
		}
		got := make([]string, len(entries))
		for i, e := range entries {
			got[i] = actx.relabel(e.Message)
		}
		if !slices.Equal(got, a.Messages) {
			return &AssertionError{
				Type:     AssertLogMessages,
				Expected: fmt.Sprintf("%q", a.Messages),
				Actual:   fmt.Sprintf("%q", got),
				Trace:    result.Trace,
			}
		}
	case AssertBranchCount:
		branches, err := actx.Store.ListBranches(actx.Ctx, kind)
		if err != nil {
			return err
		}
		if len(branches) != *a.Count {
			names := make([]string, len(branches))
			for i, b := range branches {
				names[i] = b.Name
			}
			return &AssertionError{
				Type:     AssertBranchCount,
				Expected: fmt.Sprintf("%d branches for %s", *a.Count, kind),
				Actual:   fmt.Sprintf("%d branches %v", len(branches), names),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertHeadSnapshot compares the head snapshot with the expected
// document. lastUpdated is ignored unless the expectation names it.
func assertHeadSnapshot(actx *AssertionContext, result *Result, kind, branch string, a Assertion) error {
	expected, err := toDocument(a.Expect.(map[string]any))
	if err != nil {
		return fmt.Errorf("head_snapshot: %w", err)
	}

	actual, err := actx.Store.GetHeadSnapshot(actx.Ctx, kind, branch)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{
			Type:     AssertHeadSnapshot,
			Expected: formatDocument(expected),
			Actual:   fmt.Sprintf("no head on %s/%s", kind, branch),
			Trace:    result.Trace,
		}
	}
	if err != nil {
		return err
	}

	if _, ok := expected[doc.LastUpdated]; !ok {
		delete(actual, doc.LastUpdated)
	}
	if !expected.Equal(actual) {
		return &AssertionError{
			Type:     AssertHeadSnapshot,
			Expected: formatDocument(expected),
			Actual:   formatDocument(actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertConflicts(result *Result, a Assertion) error {
	ev, ok := result.event(a.Step)
	if !ok {
		return fmt.Errorf("conflicts: step %d out of range", a.Step)
	}

	got := make([]string, len(ev.Conflicts))
	for i, c := range ev.Conflicts {
		got[i] = c.Field
	}
	want := a.Fields
	if want == nil {
		want = []string{}
	}

	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertConflicts,
			Expected: fmt.Sprintf("step %d conflicts on %v", a.Step, want),
			Actual:   fmt.Sprintf("conflicts on %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertResult(result *Result, a Assertion) error {
	ev, ok := result.event(a.Step)
	if !ok {
		return fmt.Errorf("result: step %d out of range", a.Step)
	}

	want, _ := a.Expect.(string)
	if ev.Outcome != want {
		return &AssertionError{
			Type:     AssertResult,
			Expected: fmt.Sprintf("step %d outcome %s", a.Step, want),
			Actual:   ev.Outcome,
			Trace:    result.Trace,
		}
	}
	return nil
}

func (actx *AssertionContext) relabel(s string) string {
	if actx.Labels == nil {
		return s
	}
	return actx.Labels.relabel(s)
}

func formatDocument(d doc.Document) string {
	data, err := d.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", map[string]doc.Value(d))
	}
	return string(data)
}
