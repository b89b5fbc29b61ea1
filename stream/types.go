// Package stream reads and writes sequences of literal values.
//
// A stream is plain literal text holding any number of top-level values
// separated by whitespace, comments allowed:
//
//	{op: "insert", ns: "db.coll"}
//	{op: "query", secs_running: NumberLong(12)}
//
// Values are written compact, one per line, so any line-oriented tool can
// split them. Reading does not depend on the line breaks.
//
// The package also fingerprints values (StateHash) and tracks per-name state
// so callers can tell real edits from no-op rewrites.
package stream

import (
	"fmt"

	"tlog.app/go/errors"
)

// MaxInputSize is the default maximum size of a stream read by Reader (64 MiB).
const MaxInputSize = 64 * 1024 * 1024

// ErrInputTooLarge is returned when a Reader's input exceeds its size limit.
var ErrInputTooLarge = errors.New("stream input too large")

// BaseMismatchError is returned when a state hash differs from the expected one.
type BaseMismatchError struct {
	Name     string
	Expected [32]byte
	Got      [32]byte
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("stream: %s: base hash mismatch: expected %s, got %s",
		e.Name, HashToHex(e.Expected)[:12], HashToHex(e.Got)[:12])
}
