// Package pipeline is the caller-side view of one document kind.
//
// A Pipeline keeps a process-local copy of the head snapshot so that
// readers (prompt builders, extractors) do not hit the database on every
// access. The cache is invalidated by every local write made through the
// Pipeline. Writes made by other processes are not seen until the next
// Invalidate; a Watcher on the database files narrows that window but the
// cache stays best-effort. The store itself is always consistent.
//
// Optional CUE schemas validate documents before they are saved. The
// store never validates.
package pipeline
