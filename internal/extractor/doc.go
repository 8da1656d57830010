// Package extractor finds function boundaries in source files by asking a
// reasoning model to return {function_name, start_line, end_line} descriptors.
//
// The extractor is language-agnostic: it never parses syntax itself, so one
// code path covers every supported file extension. The price is tolerance:
// model output can be unparsable (retry once, then degrade to file-only
// chunking), out of range (clipped or discarded per boundary), or contain
// overlapping/duplicate boundaries (kept as-is; each still becomes a chunk).
package extractor
