// Package indexer coordinates the indexing pipeline: discover source files,
// extract function boundaries and chunk each file across a bounded worker
// pool, batch-embed every chunk, append vectors and metadata in lockstep,
// and atomically publish the finished index directory.
//
// The parallel stage only produces chunks; a single coordinating goroutine
// performs every index and metadata mutation afterwards, so no write races
// exist by construction. Per-file failures are aggregated into the run
// summary rather than raised individually; the run itself fails only when
// the embedding failure ratio exceeds the configured threshold.
package indexer
