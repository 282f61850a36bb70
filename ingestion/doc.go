// Package ingestion provides the pipeline that adds source documents to the
// retrieval store.
//
// The Pipeline chunks raw document text into passages, embeds them, and
// appends passages and vectors to the passage store and the vector index as
// one unit per source. Ingestion is idempotent per source document and the
// store/index pair stays length-aligned after every call, including failed
// ones.
//
// Bulk ingestion runs documents concurrently on a worker pool and recovers
// locally from per-passage embedding failures; single-source Ingest is
// strict and rolls back whole.
package ingestion
