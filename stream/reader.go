package stream

import (
	"io"

	"tlog.app/go/errors"

	"github.com/mongood/shelldata/shelldata"
)

// Reader reads successive values from an io.Reader.
//
// Input is buffered whole on the first call to Next, bounded by the
// maximum size, so error positions refer to the complete stream.
type Reader struct {
	r       io.Reader
	maxSize int64
	opts    shelldata.ParseOptions

	p     *shelldata.Parser
	count int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxSize sets the maximum input size (default: MaxInputSize).
func WithMaxSize(n int64) ReaderOption {
	return func(r *Reader) {
		r.maxSize = n
	}
}

// WithParseOptions sets the options each value is parsed with.
// AllowEmpty is ignored: an empty stream simply has no values.
func WithParseOptions(opts shelldata.ParseOptions) ReaderOption {
	return func(r *Reader) {
		r.opts = opts
	}
}

// NewReader creates a new value reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:       r,
		maxSize: MaxInputSize,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and returns the next value.
// Returns io.EOF when no more values are available.
// Parse errors are returned as is, positioned within the whole input.
func (r *Reader) Next() (*shelldata.Value, error) {
	if r.p == nil {
		if err := r.load(); err != nil {
			return nil, err
		}
	}

	v, err := r.p.Next()
	if err != nil {
		return nil, err
	}

	r.count++

	return v, nil
}

// Count returns the number of values read so far.
func (r *Reader) Count() int {
	return r.count
}

func (r *Reader) load() error {
	data, err := io.ReadAll(io.LimitReader(r.r, r.maxSize+1))
	if err != nil {
		return errors.Wrap(err, "read input")
	}

	if int64(len(data)) > r.maxSize {
		return errors.Wrap(ErrInputTooLarge, "limit %d bytes", r.maxSize)
	}

	r.p = shelldata.NewParser(string(data), r.opts)

	return nil
}

// ReadAll reads all values until EOF.
func (r *Reader) ReadAll() ([]*shelldata.Value, error) {
	var values []*shelldata.Value
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
}
