package doc

import "sort"

// Delta records, per fact-list field, which items a commit added and
// removed relative to its parent. It exists for history display only and
// is never replayed.
type Delta struct {
	Added   map[string][]string `json:"added"`
	Removed map[string][]string `json:"removed"`
}

// NewDelta returns an empty delta with non-nil buckets.
func NewDelta() Delta {
	return Delta{
		Added:   map[string][]string{},
		Removed: map[string][]string{},
	}
}

// Normalize replaces nil buckets with empty maps.
func (d Delta) Normalize() Delta {
	if d.Added == nil {
		d.Added = map[string][]string{}
	}
	if d.Removed == nil {
		d.Removed = map[string][]string{}
	}
	return d
}

// AddedCount is the total number of added items across all fields.
func (d Delta) AddedCount() int {
	return countItems(d.Added)
}

// RemovedCount is the total number of removed items across all fields.
func (d Delta) RemovedCount() int {
	return countItems(d.Removed)
}

// IsEmpty reports whether the delta records no change.
func (d Delta) IsEmpty() bool {
	return d.AddedCount() == 0 && d.RemovedCount() == 0
}

// Fields returns every field touched by the delta, sorted.
func (d Delta) Fields() []string {
	seen := make(map[string]struct{}, len(d.Added)+len(d.Removed))
	for f := range d.Added {
		seen[f] = struct{}{}
	}
	for f := range d.Removed {
		seen[f] = struct{}{}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func countItems(bucket map[string][]string) int {
	n := 0
	for _, items := range bucket {
		n += len(items)
	}
	return n
}

// ComputeDelta diffs the fact-list fields of two documents.
//
// Only List values participate; scalar fields are never diffed and
// LastUpdated is skipped. Items are matched by FactKey, so "X" and " x "
// are the same fact. Blank items are ignored and only non-empty buckets
// are recorded.
func ComputeDelta(old, new Document) Delta {
	delta := NewDelta()

	for _, field := range unionKeys(old, new) {
		if field == LastUpdated {
			continue
		}
		oldList, oldIsList := old[field].(List)
		newList, newIsList := new[field].(List)

		var added, removed []string
		switch {
		case oldIsList && newIsList:
			added = missingFrom(newList, keySet(oldList))
			removed = missingFrom(oldList, keySet(newList))
		case newIsList:
			added = missingFrom(newList, nil)
		case oldIsList:
			removed = missingFrom(oldList, nil)
		}

		if len(added) > 0 {
			delta.Added[field] = added
		}
		if len(removed) > 0 {
			delta.Removed[field] = removed
		}
	}

	return delta
}

// missingFrom returns the non-blank items of list whose key is not in set.
func missingFrom(list List, set map[string]struct{}) []string {
	var out []string
	for _, item := range list {
		k := FactKey(item)
		if k == "" {
			continue
		}
		if _, ok := set[k]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

func unionKeys(a, b Document) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
