package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/message"
)

func payloadIs(v any) message.Filter {
	return message.FilterFunc(func(m *message.Message) bool { return m.Payload() == v })
}

func newStartedCollection(t *testing.T, opts []CollectionOption, routers ...Router) *Collection {
	t.Helper()
	c := NewCollection(opts...)
	for _, r := range routers {
		require.NoError(t, c.AddRouter(context.Background(), r))
	}
	require.NoError(t, c.Initialise())
	require.NoError(t, c.Start(context.Background()))
	return c
}

func TestCollection_FirstMatch(t *testing.T) {
	a, b := newRecordingDest("a"), newRecordingDest("b")
	ra, err := NewPassThrough("ra", dests(a), quiet(), WithFilter(payloadIs("x")))
	require.NoError(t, err)
	rb, err := NewPassThrough("rb", dests(b), quiet())
	require.NoError(t, err)

	c := newStartedCollection(t, nil, ra, rb)

	_, err = c.Process(context.Background(), message.NewEvent(message.New("x")))
	require.NoError(t, err)
	_, err = c.Process(context.Background(), message.NewEvent(message.New("y")))
	require.NoError(t, err)

	assert.Equal(t, []any{"x"}, a.payloads())
	assert.Equal(t, []any{"y"}, b.payloads())
}

func TestCollection_MatchAll(t *testing.T) {
	a, b := newRecordingDest("a"), newRecordingDest("b")
	ra, err := NewPassThrough("ra", dests(a), quiet())
	require.NoError(t, err)
	rb, err := NewPassThrough("rb", dests(b), quiet())
	require.NoError(t, err)

	c := newStartedCollection(t, []CollectionOption{WithMatchAll(true)}, ra, rb)
	original := message.New("x")
	result, err := c.Process(context.Background(), message.NewEvent(original))
	require.NoError(t, err)

	parts, ok := result.Message().Parts()
	require.True(t, ok)
	assert.Len(t, parts, 2)

	// earlier routers get a copy, the last one the original
	assert.NotSame(t, original, a.Received()[0])
	assert.NotSame(t, a.Received()[0], b.Received()[0])
}

func TestCollection_NoMatch(t *testing.T) {
	r, err := NewPassThrough("r", dests(newRecordingDest("a")), quiet(), WithFilter(payloadIs("never")))
	require.NoError(t, err)

	t.Run("dropped without catch-all", func(t *testing.T) {
		c := newStartedCollection(t, []CollectionOption{WithCollectionLogger(quietLogger())}, r)

		event := message.NewEvent(message.New("x"))
		result, err := c.Process(context.Background(), event)
		require.NoError(t, err)
		assert.Same(t, event, result)
	})

	t.Run("forwarded to catch-all", func(t *testing.T) {
		fallback := newRecordingDest("fallback")
		r2, err := NewPassThrough("r2", dests(newRecordingDest("a")), quiet(), WithFilter(payloadIs("never")))
		require.NoError(t, err)
		c := newStartedCollection(t, []CollectionOption{WithCatchAll(ForwardingCatchAll{Destination: fallback})}, r2)

		result, err := c.Process(context.Background(), message.NewEvent(message.New("x")))
		require.NoError(t, err)
		assert.Equal(t, "x", result.Message().Payload())
		assert.Len(t, fallback.Received(), 1)
	})

	t.Run("logging catch-all", func(t *testing.T) {
		r3, err := NewPassThrough("r3", nil, quiet(), WithFilter(payloadIs("never")))
		require.NoError(t, err)
		c := newStartedCollection(t, []CollectionOption{WithCatchAll(LoggingCatchAll{Logger: quietLogger()})}, r3)

		result, err := c.Process(context.Background(), message.NewEvent(message.New("x")))
		require.NoError(t, err)
		assert.True(t, result.IsNoResult())
	})
}

func TestCollection_ConsumablePayload(t *testing.T) {
	newPair := func(t *testing.T) (Router, Router, *recordingDest) {
		a := newRecordingDest("a")
		ra, err := NewPassThrough("ra", dests(a), quiet())
		require.NoError(t, err)
		rb, err := NewPassThrough("rb", dests(newRecordingDest("b")), quiet())
		require.NoError(t, err)
		return ra, rb, a
	}

	t.Run("first match does not copy", func(t *testing.T) {
		ra, rb, a := newPair(t)
		c := newStartedCollection(t, nil, ra, rb)

		_, err := c.Process(context.Background(), message.NewEvent(message.New(&readerPayload{})))
		require.NoError(t, err)
		assert.Len(t, a.Received(), 1)
	})

	t.Run("match all needs a copy for earlier routers", func(t *testing.T) {
		ra, rb, _ := newPair(t)
		c := newStartedCollection(t, []CollectionOption{WithMatchAll(true)}, ra, rb)

		_, err := c.Process(context.Background(), message.NewEvent(message.New(&readerPayload{})))
		assert.ErrorIs(t, err, message.ErrNotCloneable)
	})

	t.Run("match all with one router", func(t *testing.T) {
		c := newStartedCollection(t, []CollectionOption{WithMatchAll(true)}, mustPassThrough(t, "only"))

		_, err := c.Process(context.Background(), message.NewEvent(message.New(&readerPayload{})))
		assert.NoError(t, err)
	})
}

func TestCollection_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewCollection()

	r1 := mustPassThrough(t, "r1")
	require.NoError(t, c.AddRouter(ctx, r1))
	assert.ErrorIs(t, c.AddRouter(ctx, mustPassThrough(t, "r1")), ErrDuplicateRouter)

	_, err := c.Process(ctx, message.NewEvent(message.New("x")))
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, c.Initialise())
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, StateStarted, r1.State())

	r2 := mustPassThrough(t, "r2")
	require.NoError(t, c.AddRouter(ctx, r2))
	assert.Equal(t, StateStarted, r2.State())

	got, ok := c.Router("r2")
	require.True(t, ok)
	assert.Same(t, r2, got)

	require.NoError(t, c.RemoveRouter(ctx, "r2"))
	assert.Equal(t, StateDisposed, r2.State())
	assert.Len(t, c.Routers(), 1)
	assert.Error(t, c.RemoveRouter(ctx, "r2"))

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, StateStopped, r1.State())
	require.NoError(t, c.Dispose())
	assert.Equal(t, StateDisposed, r1.State())
}

func mustPassThrough(t *testing.T, name string) *PassThrough {
	t.Helper()
	r, err := NewPassThrough(name, dests(newRecordingDest(name+"-dest")), quiet())
	require.NoError(t, err)
	return r
}
