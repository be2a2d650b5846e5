// Package store provides the keyed in-memory tables that back the marketplace
// repositories. Each table is an explicit dependency; there is no global store.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Update when the key is absent.
var ErrNotFound = errors.New("store: record not found")

// Table is a concurrency-safe map of records keyed by UUID. Values are stored
// by copy so callers cannot mutate a stored record outside Update.
type Table[T any] struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]T
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{rows: make(map[uuid.UUID]T)}
}

func (t *Table[T]) Get(id uuid.UUID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func (t *Table[T]) Set(id uuid.UUID, value T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = value
}

// Insert stores value only if id is unused and reports whether it did.
func (t *Table[T]) Insert(id uuid.UUID, value T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; exists {
		return false
	}
	t.rows[id] = value
	return true
}

// Delete removes id and reports whether it was present.
func (t *Table[T]) Delete(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// Update applies fn to the stored record under the write lock. The record is
// saved only when fn returns nil.
func (t *Table[T]) Update(id uuid.UUID, fn func(row *T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	if err := fn(&row); err != nil {
		var zero T
		return zero, err
	}
	t.rows[id] = row
	return row, nil
}

// Values returns a snapshot of every record in unspecified order.
func (t *Table[T]) Values() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, row)
	}
	return out
}

// Filter returns the records matching keep, sorted with less when non-nil.
func (t *Table[T]) Filter(keep func(T) bool, less func(a, b T) bool) []T {
	t.mu.RLock()
	out := make([]T, 0)
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	t.mu.RUnlock()
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Find returns the first record matching match. Iteration order is unspecified.
func (t *Table[T]) Find(match func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, row := range t.rows {
		if match(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
