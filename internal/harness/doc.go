// Package harness runs YAML conformance scenarios against the snapshot
// store.
//
// # Scenario Format
//
//	name: merge_conflict
//	description: "Scalar conflicts are reported but never block a merge"
//	kind: profile            # default "profile"
//	steps:
//	  - commit:
//	      branch: main       # default "main"
//	      message: seed
//	      confidence: high   # default MEDIUM
//	      snapshot: { x: B, skills: [go] }
//	  - branch: { name: feature, from: main }
//	  - merge: { source: feature, target: main }
//	  - rollback: { to: c1 }
//	  - delete_branch: { name: feature }
//	  - migrate: { snapshot: { skills: [cobol] } }
//	assertions:
//	  - type: head_snapshot
//	    branch: main
//	    expect: { x: B, skills: [go] }
//	  - type: log_count
//	    branch: main
//	    count: 2
//	  - type: log_messages
//	    branch: main
//	    messages: ["Merge 'feature' into 'main'", seed]
//	  - type: conflicts
//	    step: 3
//	    fields: [x]
//	  - type: branch_count
//	    count: 2
//	  - type: result
//	    step: 4
//	    expect: not_found
//
// Any step may carry a kind to override the scenario kind.
//
// # Determinism
//
// Each scenario runs on a fresh in-memory database with a deterministic
// clock and nonce sequence, so hashes are reproducible. Traces still
// replace every commit hash with a label (c1, c2, ...) in creation order,
// including inside messages such as "Rollback to <hash>". Scenario steps
// refer to commits by those labels.
//
// # Golden Files
//
// RunWithGolden compares the trace with testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
