// Package chunker turns a source file and its extracted function boundaries
// into retrievable chunks: exactly one file-tier chunk holding the whole
// text, plus one function-tier chunk per boundary holding the exact line
// slice with no reformatting.
//
// Round-trip guarantee: a function chunk's content always equals the source
// lines [StartLine, EndLine] joined with newlines, so the chunk can be
// reconstructed from (path, start_line, end_line) alone.
package chunker
