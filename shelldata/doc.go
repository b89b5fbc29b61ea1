// Package shelldata converts between relaxed shell-style literal text and typed values.
//
// The notation is a superset of JSON intended for people typing queries, index
// specifications and documents by hand:
//   - Unquoted keys and single-quoted strings
//   - Trailing commas before } and ]
//   - Line (//) and block (/* */) comments
//   - Typed constructor calls: ObjectId("..."), NumberLong(1), ISODate("..."),
//     NumberDecimal("1.5"), Timestamp(1, 2), BinData(0, "..."), RegExp("p", "i"),
//     MinKey(), MaxKey()
//   - Bare regular expressions: /^Index Build/i
//   - The keywords undefined, NaN, Infinity and -Infinity
//
// # Data Model
//
// A parsed value is a closed tagged union (see Kind). Documents keep their
// member order. Values are immutable once constructed; edits produce new trees.
//
// # Round Trip
//
// Parse and Serialize are inverse for every value this package can construct:
//
//	v, _ := shelldata.Parse(`{ts: Timestamp(1, 2), msg: /^Index Build/}`)
//	text := shelldata.Serialize(v, shelldata.CompactOptions())
//	w, _ := shelldata.Parse(text)
//	shelldata.Equal(v, w) // true
//
// # Errors
//
// Malformed input fails with *LexError, *SyntaxError or *ValidationError.
// Each carries the byte offset and 1-based line and column of the offending token.
package shelldata
