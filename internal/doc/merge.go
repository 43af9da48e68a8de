package doc

import "time"

// Conflict reports a field whose scalar values differ between the merge
// source and target. The target's value is always kept.
type Conflict struct {
	Field        string   `json:"field"`
	SourceValues []string `json:"source_values"`
	TargetValues []string `json:"target_values"`
}

// MergeDocuments unions source into target.
//
//   - Lists on both sides (or only in source): target's items in order and
//     casing, then source items whose FactKey is not yet present.
//   - Lists only in target: unchanged.
//   - Scalars on both sides that differ: conflict, target wins.
//   - Fields present on one side only: copied.
//   - A list on one side and a scalar on the other: conflict, target wins.
//
// LastUpdated is stamped with now. Conflicts never block the merge.
func MergeDocuments(target, source Document, now time.Time) (Document, []Conflict) {
	merged := make(Document, len(target)+len(source))
	conflicts := []Conflict{}

	for _, field := range unionKeys(target, source) {
		if field == LastUpdated {
			continue
		}
		tv, inTarget := target[field]
		sv, inSource := source[field]

		switch {
		case !inSource:
			merged[field] = cloneValue(tv)
		case !inTarget:
			if list, ok := sv.(List); ok {
				merged[field] = unionLists(nil, list)
			} else {
				merged[field] = cloneValue(sv)
			}
		default:
			tl, tIsList := tv.(List)
			sl, sIsList := sv.(List)
			switch {
			case tIsList && sIsList:
				merged[field] = unionLists(tl, sl)
			case valuesEqual(tv, sv):
				merged[field] = cloneValue(tv)
			default:
				conflicts = append(conflicts, Conflict{
					Field:        field,
					SourceValues: Strings(sv),
					TargetValues: Strings(tv),
				})
				merged[field] = cloneValue(tv)
			}
		}
	}

	merged[LastUpdated] = Text(now.UTC().Format(TimestampLayout))
	return merged, conflicts
}

// unionLists keeps target verbatim and appends unseen, non-blank source
// items. The first casing seen wins.
func unionLists(target, source List) List {
	out := make(List, 0, len(target)+len(source))
	out = append(out, target...)

	seen := keySet(target)
	for _, item := range source {
		k := FactKey(item)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
