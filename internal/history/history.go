// Package history keeps an ordered item sequence together with its redo stack.
package history

// Store is an ordered sequence with undo/redo support.
// It is not safe for concurrent use; callers serialize access.
type Store[T any] struct {
	items  []T
	undone []T
}

// New creates a new empty store.
func New[T any]() *Store[T] {
	return &Store[T]{
		items:  make([]T, 0),
		undone: make([]T, 0),
	}
}

// Push appends an item and clears the redo stack.
func (s *Store[T]) Push(item T) {
	s.items = append(s.items, item)
	s.undone = s.undone[:0]
}

// PopUndo removes the last item and puts it at the front of the redo stack.
// Returns false if there is nothing to undo.
func (s *Store[T]) PopUndo() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	s.undone = append([]T{last}, s.undone...)
	return last, true
}

// PopRedo removes the front of the redo stack and appends it to the sequence.
// Returns false if there is nothing to redo.
func (s *Store[T]) PopRedo() (T, bool) {
	if len(s.undone) == 0 {
		var zero T
		return zero, false
	}
	first := s.undone[0]
	s.undone = s.undone[1:]
	s.items = append(s.items, first)
	return first, true
}

// Clear removes all items and the redo stack.
func (s *Store[T]) Clear() {
	s.items = s.items[:0]
	s.undone = s.undone[:0]
}

// Replace resets the store to items. It is a Clear followed by one Push per
// item, so it may only be used where a Clear is allowed.
func (s *Store[T]) Replace(items ...T) {
	s.Clear()
	for _, item := range items {
		s.Push(item)
	}
}

// Set overwrites the item at index i in place. Returns false when out of range.
func (s *Store[T]) Set(i int, item T) bool {
	if i < 0 || i >= len(s.items) {
		return false
	}
	s.items[i] = item
	return true
}

// At returns the item at index i.
func (s *Store[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(s.items) {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// Items returns a copy of the sequence.
func (s *Store[T]) Items() []T {
	return append(make([]T, 0, len(s.items)), s.items...)
}

// Undone returns a copy of the redo stack, front first.
func (s *Store[T]) Undone() []T {
	return append(make([]T, 0, len(s.undone)), s.undone...)
}

// Len returns the number of items in the sequence.
func (s *Store[T]) Len() int {
	return len(s.items)
}

// CanUndo returns true if the sequence is non-empty.
func (s *Store[T]) CanUndo() bool {
	return len(s.items) > 0
}

// CanRedo returns true if the redo stack is non-empty.
func (s *Store[T]) CanRedo() bool {
	return len(s.undone) > 0
}
