package command

import (
	"sync"

	"github.com/mongood/shelldata/shelldata"
)

// Filter holds the current operation filter of a view.
// Setting a structurally equal value is a no-op, so views refreshing on
// change do not refetch when the user retypes the same filter.
//
// A Filter is safe for concurrent use.
type Filter struct {
	mu  sync.Mutex
	v   *shelldata.Value
	rev uint64
}

// Get returns the current filter, {} if never set.
func (f *Filter) Get() *shelldata.Value {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.v == nil {
		return shelldata.Document()
	}

	return f.v
}

// Revision returns the number of changes made so far.
func (f *Filter) Revision() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rev
}

// Set replaces the filter. It reports whether the filter changed.
// A nil value resets the filter to {}.
func (f *Filter) Set(v *shelldata.Value) (changed bool, err error) {
	if v == nil {
		v = shelldata.Document()
	}

	if _, err := fragment(v, "filter"); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cur := f.v
	if cur == nil {
		cur = shelldata.Document()
	}

	if shelldata.Equal(cur, v) {
		return false, nil
	}

	f.v = v
	f.rev++

	return true, nil
}

// SetText parses text and sets the result. Empty text means {}.
// On parse error the filter is left unchanged.
func (f *Filter) SetText(text string) (changed bool, err error) {
	v, err := shelldata.ParseWithOptions(text, shelldata.ParseOptions{AllowEmpty: true})
	if err != nil {
		return false, err
	}

	return f.Set(v)
}
