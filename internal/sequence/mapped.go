package sequence

type mapped[T, U any] struct {
	inner Sequence[T]
	fn    func(T) U
}

// Map applies fn lazily to every element of inner. Size and emptiness are
// those of inner.
func Map[T, U any](inner Sequence[T], fn func(T) U) Sequence[U] {
	return &mapped[T, U]{inner: inner, fn: fn}
}

func (m *mapped[T, U]) Size() int     { return m.inner.Size() }
func (m *mapped[T, U]) HasNext() bool { return m.inner.HasNext() }
func (m *mapped[T, U]) IsEmpty() bool { return m.inner.IsEmpty() }

func (m *mapped[T, U]) Next() (U, error) {
	v, err := m.inner.Next()
	if err != nil {
		var zero U
		return zero, err
	}
	return m.fn(v), nil
}

// Close closes the wrapped sequence
func (m *mapped[T, U]) Close() {
	Close(m.inner)
}
