// Package store provides the SQLite-backed commit store for versioned
// preference documents.
//
// The store keeps two tables:
//   - branches: (kind, branch_name) -> head commit hash
//   - commits: append-only, immutable commit records, each carrying a
//     parent pointer, a structural delta and a full snapshot
//
// # Invariants
//
//   - Every snapshot is self-contained; reading a head never replays deltas.
//   - Commits are never updated. Only DeleteBranch removes rows, and only a
//     whole non-main branch at a time.
//   - History is single-parent per branch. Merge commits record only the
//     target's previous head; the source appears in the message text.
//   - Branch creation copies the source head with a null parent.
//   - Rollback appends a copy of an old snapshot; history is never rewound.
//
// # Concurrency
//
// Each mutating operation (Commit, CreateBranch, Merge, Rollback,
// DeleteBranch) runs read-head, compute, insert-commit and move-head in one
// transaction. Transactions begin IMMEDIATE (_txlock=immediate), so two
// writers on the same file serialize before reading the head and no update
// can be lost. Reads are not transactional and may observe a head that is
// being replaced.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Stored delta and snapshot JSON that fails to decode is logged and read
// back as empty, so history stays browsable.
package store
