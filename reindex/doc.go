// Package reindex migrates an existing corpus to a new or updated
// embedding model.
//
// The passage store is append-only, so a model change is expressed as a
// migration: every source document is read back in row order, re-embedded,
// and appended into a fresh destination corpus. The package supports
// per-source progress tracking, retry with exponential backoff for
// embedding calls, and resuming an interrupted run.
package reindex
