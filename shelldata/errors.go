package shelldata

import (
	"fmt"

	"tlog.app/go/errors"
)

// Sentinel errors wrapped by SyntaxError.
var (
	ErrTooDeep    = errors.New("nesting too deep")
	ErrEmptyInput = errors.New("empty input")
)

// LexError reports a malformed token.
type LexError struct {
	Message string
	Pos     Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Pos)
}

// Position returns where the malformed token starts.
func (e *LexError) Position() Position { return e.Pos }

// SyntaxError reports malformed grammar: a missing delimiter, an unexpected
// token, an unknown constructor or a wrong constructor arity.
type SyntaxError struct {
	Message     string
	Pos         Position
	Expected    string // what the grammar allowed here, if known
	Found       string // the offending token text
	Constructor string // set for constructor call failures
	Err         error  // wrapped sentinel, if any
}

func (e *SyntaxError) Error() string {
	msg := e.Message
	if e.Constructor != "" {
		msg = e.Constructor + ": " + msg
	}

	return fmt.Sprintf("%s at %s", msg, e.Pos)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Position returns where the offending token starts.
func (e *SyntaxError) Position() Position { return e.Pos }

// ValidationError reports a well-formed constructor call whose argument
// content is invalid: bad hex, a bad date, an unparsable number, an illegal
// regex flag.
type ValidationError struct {
	Message     string
	Pos         Position
	Constructor string
	Err         error
}

func (e *ValidationError) Error() string {
	if e.Constructor == "" {
		return fmt.Sprintf("%s at %s", e.Message, e.Pos)
	}

	return fmt.Sprintf("%s: %s at %s", e.Constructor, e.Message, e.Pos)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Position returns where the offending argument starts.
func (e *ValidationError) Position() Position { return e.Pos }

// ErrorPosition extracts the source position from an error returned by the parser.
func ErrorPosition(err error) (Position, bool) {
	var p interface{ Position() Position }
	if errors.As(err, &p) {
		return p.Position(), true
	}

	return Position{}, false
}
