// Package probe retries a simulation across descending trial magnitudes.
package probe

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"yieldScope/internal/simerr"
)

// DefaultMagnitudes are trial sizes in protocol base units, largest first.
var DefaultMagnitudes = []uint64{1_000_000, 10_000, 1_000, 100, 10}

// Memo holds the index of the last successful magnitude. It only changes
// where a ladder starts and how many calls it takes.
type Memo struct {
	mu    sync.Mutex
	index int
}

func (m *Memo) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Memo) Set(i int) {
	m.mu.Lock()
	m.index = i
	m.mu.Unlock()
}

func (m *Memo) Reset() { m.Set(0) }

// Attempt is the outcome of a successful ladder run.
type Attempt[T any] struct {
	Value     T
	Index     int
	Magnitude uint64
	Tries     int
}

// Run returns the result of the largest magnitude fn accepts. The memo is
// only a starting hint: a success there is followed by probes of the next
// larger magnitudes until one fails, and a failure walks down the ladder
// before trying the larger magnitudes above the hint. Magnitudes that succeed
// are assumed contiguous, so every memo index yields what index 0 yields.
// Decode invariant, network and context errors stop the ladder immediately.
func Run[T any](ctx context.Context, label string, magnitudes []uint64, memo *Memo, fn func(ctx context.Context, magnitude uint64) (T, error)) (Attempt[T], error) {
	var zero Attempt[T]
	if len(magnitudes) == 0 {
		return zero, fmt.Errorf("%s: empty probe ladder", label)
	}
	start := 0
	if memo != nil {
		start = memo.Index()
		if start < 0 || start >= len(magnitudes) {
			start = 0
		}
	}

	tries := 0
	failures := make([]simerr.ProbeFailure, 0, len(magnitudes))
	try := func(i int) (T, bool, error) {
		var v T
		if err := ctx.Err(); err != nil {
			return v, false, fmt.Errorf("%s: %w", label, err)
		}
		tries++
		v, err := fn(ctx, magnitudes[i])
		if err == nil {
			return v, true, nil
		}
		if simerr.Fatal(err) {
			return v, false, err
		}
		failures = append(failures, simerr.ProbeFailure{Magnitude: strconv.FormatUint(magnitudes[i], 10), Err: err})
		return v, false, nil
	}
	found := func(value T, i int) Attempt[T] {
		if memo != nil {
			memo.Set(i)
		}
		return Attempt[T]{Value: value, Index: i, Magnitude: magnitudes[i], Tries: tries}
	}
	// climb probes larger magnitudes above a success at i while they succeed.
	climb := func(value T, i int) (Attempt[T], error) {
		for j := i - 1; j >= 0; j-- {
			v, ok, err := try(j)
			if err != nil {
				return zero, err
			}
			if !ok {
				break
			}
			value, i = v, j
		}
		return found(value, i), nil
	}

	for i := start; i < len(magnitudes); i++ {
		v, ok, err := try(i)
		if err != nil {
			return zero, err
		}
		if !ok {
			continue
		}
		if i == start {
			return climb(v, i)
		}
		return found(v, i), nil
	}
	for i := start - 1; i >= 0; i-- {
		v, ok, err := try(i)
		if err != nil {
			return zero, err
		}
		if ok {
			return climb(v, i)
		}
	}
	return zero, &simerr.AllProbesFailedError{Label: label, Probes: failures}
}

// Memos is a registry of memos keyed by pool and probe purpose.
type Memos struct {
	mu    sync.Mutex
	memos map[string]*Memo
}

func NewMemos() *Memos {
	return &Memos{memos: make(map[string]*Memo)}
}

// For returns the memo for key, creating it at index 0.
func (m *Memos) For(key string) *Memo {
	m.mu.Lock()
	defer m.mu.Unlock()
	memo, ok := m.memos[key]
	if !ok {
		memo = &Memo{}
		m.memos[key] = memo
	}
	return memo
}

// Reset sets the memo for key back to the first magnitude.
func (m *Memos) Reset(key string) {
	m.mu.Lock()
	memo, ok := m.memos[key]
	m.mu.Unlock()
	if ok {
		memo.Reset()
	}
}

func (m *Memos) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, memo := range m.memos {
		memo.Reset()
	}
}

// Snapshot returns the current indices.
func (m *Memos) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.memos))
	for k, memo := range m.memos {
		out[k] = memo.Index()
	}
	return out
}

// Restore sets indices from a snapshot.
func (m *Memos) Restore(indices map[string]int) {
	for k, i := range indices {
		m.For(k).Set(i)
	}
}

// Key builds a memo key for a pool and probe purpose.
func Key(poolID, purpose string) string {
	return poolID + "/" + purpose
}
