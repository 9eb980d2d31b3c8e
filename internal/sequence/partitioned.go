package sequence

type partitioned[T any] struct {
	inner     Sequence[T]
	groupSize int
}

// Partitioned groups inner into batches of groupSize. The final batch holds
// whatever is left and may be smaller. groupSize must be greater than 1.
func Partitioned[T any](inner Sequence[T], groupSize int) (Sequence[[]T], error) {
	if groupSize <= 1 {
		return nil, ErrInvalidGroupSize
	}
	return &partitioned[T]{inner: inner, groupSize: groupSize}, nil
}

func (p *partitioned[T]) Size() int {
	n := p.inner.Size()
	if n == Unknown {
		return Unknown
	}
	return (n + p.groupSize - 1) / p.groupSize
}

func (p *partitioned[T]) HasNext() bool { return p.inner.HasNext() }
func (p *partitioned[T]) IsEmpty() bool { return !p.HasNext() }

func (p *partitioned[T]) Next() ([]T, error) {
	if !p.inner.HasNext() {
		return nil, ErrExhausted
	}
	batch := make([]T, 0, p.groupSize)
	for len(batch) < p.groupSize && p.inner.HasNext() {
		v, err := p.inner.Next()
		if err != nil {
			return batch, err
		}
		batch = append(batch, v)
	}
	return batch, nil
}

// Close closes the wrapped sequence
func (p *partitioned[T]) Close() {
	Close(p.inner)
}
