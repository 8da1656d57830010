// Package storage holds the persisted form of the dual-tier index: one flat
// vector artifact per tier plus a SQLite metadata database mapping each
// tier's sequence ids back to chunk records.
//
// # Exact search
//
// Vector search is brute-force L2 over every stored vector. This is a
// deliberate choice over approximate indexes: at the target scale (one
// codebase, thousands of chunks) a linear scan is fast enough and
// guarantees 100% recall.
//
// # Lockstep invariant
//
// A vector's position in its tier's store and the chunk's sequence id in
// the metadata store are the same number. Every vector append is followed in
// the same step by the matching metadata append; only the indexer's single
// writer touches either. A count mismatch between the two stores silently
// corrupts every future search, so Open verifies per-tier counts and
// refuses to serve a desynced index.
//
// # Publishing
//
// A build writes into a temporary directory and atomically swaps it into
// the published location. Query sessions hold an immutable Snapshot through
// a Ref; rebuilds swap the Ref's pointer and never mutate a live snapshot.
package storage
