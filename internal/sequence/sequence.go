// Package sequence provides single-pass, lazily consumed sequences over the
// parts of a split message.
//
// Three sources are available: FromSlice (sized), FromCollection (sized by the
// container, iterated lazily) and FromIterator (unknown size). Partitioned
// groups any of them into fixed-size batches.
package sequence

import (
	"errors"
	"iter"
)

// Unknown is the size reported by sequences that cannot know their length
const Unknown = -1

var (
	// ErrExhausted is returned by Next when HasNext is false
	ErrExhausted = errors.New("sequence exhausted")
	// ErrInvalidGroupSize is returned when a partition size is not greater than one
	ErrInvalidGroupSize = errors.New("partition group size must be greater than 1")
)

// Sequence is a single-pass, non-restartable sequence
type Sequence[T any] interface {
	// Size is the number of remaining elements, or Unknown
	Size() int
	HasNext() bool
	Next() (T, error)
	// IsEmpty is !HasNext() evaluated at call time
	IsEmpty() bool
}

// Sized is an eagerly sized container that can be iterated
type Sized[T any] interface {
	Len() int
	All() iter.Seq[T]
}

// Close releases resources held by s, if it holds any. Iterator-backed
// sequences abandoned before exhaustion must be closed.
func Close[T any](s Sequence[T]) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}

// Collect drains s into a slice
func Collect[T any](s Sequence[T]) ([]T, error) {
	defer Close(s)

	var out []T
	if n := s.Size(); n > 0 {
		out = make([]T, 0, n)
	}
	for s.HasNext() {
		v, err := s.Next()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

type sliceSequence[T any] struct {
	items []T
	pos   int
}

// FromSlice returns a sized sequence over items. The slice is not copied.
func FromSlice[T any](items []T) Sequence[T] {
	return &sliceSequence[T]{items: items}
}

func (s *sliceSequence[T]) Size() int     { return len(s.items) - s.pos }
func (s *sliceSequence[T]) HasNext() bool { return s.pos < len(s.items) }
func (s *sliceSequence[T]) IsEmpty() bool { return !s.HasNext() }

func (s *sliceSequence[T]) Next() (T, error) {
	if !s.HasNext() {
		var zero T
		return zero, ErrExhausted
	}
	v := s.items[s.pos]
	s.pos++
	return v, nil
}

// pullSequence adapts a push iterator. It buffers one element so HasNext can
// answer without consuming.
type pullSequence[T any] struct {
	next      func() (T, bool)
	stop      func()
	buffered  bool
	value     T
	done      bool
	remaining int
}

func newPull[T any](seq iter.Seq[T], size int) *pullSequence[T] {
	next, stop := iter.Pull(seq)
	return &pullSequence[T]{next: next, stop: stop, remaining: size}
}

// FromCollection returns a sequence sized by c.Len() that pulls from c.All()
func FromCollection[T any](c Sized[T]) Sequence[T] {
	return newPull(c.All(), c.Len())
}

// FromIterator returns a sequence of Unknown size over seq
func FromIterator[T any](seq iter.Seq[T]) Sequence[T] {
	return newPull(seq, Unknown)
}

func (s *pullSequence[T]) Size() int {
	if s.remaining == Unknown {
		return Unknown
	}
	return s.remaining
}

func (s *pullSequence[T]) HasNext() bool {
	if s.buffered {
		return true
	}
	if s.done {
		return false
	}
	v, ok := s.next()
	if !ok {
		s.done = true
		s.stop()
		return false
	}
	s.value, s.buffered = v, true
	return true
}

func (s *pullSequence[T]) IsEmpty() bool { return !s.HasNext() }

func (s *pullSequence[T]) Next() (T, error) {
	if !s.HasNext() {
		var zero T
		return zero, ErrExhausted
	}
	v := s.value
	var zero T
	s.value, s.buffered = zero, false
	if s.remaining > 0 {
		s.remaining--
	}
	return v, nil
}

// Close stops the underlying iterator
func (s *pullSequence[T]) Close() {
	if !s.done {
		s.done = true
		s.stop()
	}
}
