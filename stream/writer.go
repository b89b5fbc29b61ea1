package stream

import (
	"io"

	"tlog.app/go/errors"

	"github.com/mongood/shelldata/shelldata"
)

// Writer writes values to an io.Writer, each followed by a newline.
type Writer struct {
	w    io.Writer
	opts shelldata.EmitOptions
	hash bool
	n    int
}

// NewWriter creates a writer emitting compact text.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, opts: shelldata.CompactOptions()}
}

// NewPrettyWriter creates a writer emitting indented text.
// Successive values are separated by a blank line.
func NewPrettyWriter(w io.Writer, indent int) *Writer {
	opts := shelldata.PrettyOptions()
	opts.IndentWidth = indent

	return &Writer{w: w, opts: opts}
}

// WithHashComments makes the writer precede every value with a
// "// sha256:<hex>" comment line. Readers skip it as a comment.
func (w *Writer) WithHashComments() *Writer {
	w.hash = true
	return w
}

// Write writes a single value.
//
// Format:
//
//	[\n]                  pretty writers, before every value but the first
//	[// sha256:<hex>\n]
//	<value text>\n
func (w *Writer) Write(v *shelldata.Value) error {
	text := shelldata.Serialize(v, w.opts)

	if w.opts.Pretty && w.n > 0 {
		if _, err := io.WriteString(w.w, "\n"); err != nil {
			return errors.Wrap(err, "write separator")
		}
	}

	w.n++

	if w.hash {
		line := "// sha256:" + HashToHex(StateHash(v)) + "\n"

		if _, err := io.WriteString(w.w, line); err != nil {
			return errors.Wrap(err, "write hash")
		}
	}

	if _, err := io.WriteString(w.w, text+"\n"); err != nil {
		return errors.Wrap(err, "write value")
	}

	return nil
}

// WriteAll writes values in order, stopping at the first error.
func (w *Writer) WriteAll(values ...*shelldata.Value) error {
	for i, v := range values {
		if err := w.Write(v); err != nil {
			return errors.Wrap(err, "value %d", i)
		}
	}

	return nil
}
