package correlator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

func TestDestination_ForwardsCompletedGroups(t *testing.T) {
	var got []*message.Message
	target := destination.NewFunc("target", func(_ context.Context, msg *message.Message, _ bool) (*message.Message, error) {
		got = append(got, msg)
		return msg, nil
	})

	d, err := NewDestination("agg", Config{Timeout: time.Minute, Logger: logging.NewNopLogger()}, target)
	require.NoError(t, err)
	assert.Equal(t, "agg", d.Name())

	resp, err := d.Send(context.Background(), part("g", 2, 2, "b"), true)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, got)

	resp, err = d.Send(context.Background(), part("g", 2, 1, "a"), true)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, got, 1)

	parts, _ := got[0].Parts()
	assert.Equal(t, []any{"a", "b"}, parts.Payloads())
}

func TestDestination_ForwardsPartialGroupOnTimeout(t *testing.T) {
	var (
		mu  sync.Mutex
		got []*message.Message
	)
	target := destination.NewFunc("target", func(_ context.Context, msg *message.Message, await bool) (*message.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		assert.False(t, await)
		got = append(got, msg)
		return nil, nil
	})

	d, err := NewDestination("agg", Config{
		Timeout:         10 * time.Millisecond,
		CleanupInterval: time.Hour,
		Logger:          logging.NewNopLogger(),
	}, target)
	require.NoError(t, err)

	_, err = d.Send(context.Background(), part("g", 3, 1, "a"), false)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	d.Correlator().Sweep()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	parts, _ := got[0].Parts()
	assert.Equal(t, []any{"a"}, parts.Payloads())
}
