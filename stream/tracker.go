package stream

import (
	"sort"
	"sync"

	"github.com/mongood/shelldata/shelldata"
)

// Tracker tracks per-name state for values that get rewritten over time,
// such as a watched file or an edited filter.
// It maintains revision counters and state hashes so no-op rewrites
// can be told apart from real edits.
type Tracker struct {
	mu sync.RWMutex

	// Per-name state
	states map[string]*State
}

// State holds state for a single name.
type State struct {
	Name      string
	Revision  uint64           // Number of observed changes
	StateHash [32]byte         // Hash of the current value
	HasState  bool             // Whether StateHash is valid
	Value     *shelldata.Value // Current value
}

// NewTracker creates a new tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*State),
	}
}

// Get returns a copy of the state for name, creating it if needed.
func (t *Tracker) Get(name string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return *t.get(name)
}

func (t *Tracker) get(name string) *State {
	state, ok := t.states[name]
	if !ok {
		state = &State{Name: name}
		t.states[name] = state
	}
	return state
}

// Lookup returns a copy of the state for name without creating it.
func (t *Tracker) Lookup(name string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[name]
	if !ok {
		return State{}, false
	}

	return *state, true
}

// Delete removes state for name.
func (t *Tracker) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, name)
}

// Names returns all tracked names in sorted order.
func (t *Tracker) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.states))
	for name := range t.states {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Observe records v as the current value of name.
// It reports whether the value differs from the previous one;
// the revision only advances on change.
func (t *Tracker) Observe(name string, v *shelldata.Value) (changed bool) {
	h := StateHash(v)

	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.get(name)
	if state.HasState && VerifyBase(state.StateHash, h) {
		return false
	}

	state.Revision++
	state.StateHash = h
	state.HasState = true
	state.Value = v

	return true
}

// Verify checks that the current state of name has the expected hash.
// Use this before applying an edit made against a known base.
func (t *Tracker) Verify(name string, base [32]byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[name]
	if !ok || !state.HasState {
		return &BaseMismatchError{Name: name, Expected: base}
	}

	if !VerifyBase(state.StateHash, base) {
		return &BaseMismatchError{Name: name, Expected: base, Got: state.StateHash}
	}

	return nil
}
