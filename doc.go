// Package nativecol implements the in-memory columnar storage and binary
// wire codec for textual data inside a database client's column-store layer.
//
// Two concrete column kinds are provided:
//
//   - String: variable-length values backed by a block arena. Rows are
//     appended into fixed-capacity blocks that never move or resize, so a
//     row's (block, offset, length) reference stays valid across any number
//     of further appends without per-row heap allocation.
//   - FixedString: fixed-width values in one flat buffer, zero-padded to the
//     declared width. Row i is always at offset i*width, so no per-row
//     indexing is needed.
//
// # Quick Start
//
//	col := nativecol.NewString()
//	col.AppendString("a")
//	col.AppendString("bb")
//	v, _ := col.Value(1) // "bb"
//
//	var buf bytes.Buffer
//	col.SaveBody(wire.NewWriter(&buf))
//
//	decoded := nativecol.NewString()
//	decoded.LoadBody(wire.NewReader(&buf), col.Rows())
//
// # Wire Format
//
// Column bodies are row-major with the row count known out-of-band:
//
//   - String: repeated [uvarint length][bytes], one pair per row.
//   - FixedString: rows*width raw bytes with no prefixes.
//
// Batch frames a set of named columns with a self-describing header and can
// stream bodies through the checksummed LZ4/zstd frame codec in package
// compress.
//
// # Ownership
//
// Columns are single-owner and not safe for concurrent mutation. Value
// returns slices that alias the column's storage; they are invalidated by
// Clear, Swap and Close. Slice and CloneEmpty always produce independent
// deep copies that share no mutable state with their source.
package nativecol
