package correlator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

func part(id string, size, seq int, payload any) *message.Message {
	return message.New(payload, message.WithCorrelation(message.NewCorrelation(id, size, seq)))
}

func newTestCorrelator(t *testing.T, cfg Config) *Correlator {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}
	cfg.Logger = logging.NewNopLogger()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestAdd_ReassemblesInSequenceOrder(t *testing.T) {
	c := newTestCorrelator(t, Config{})
	ctx := context.Background()

	for _, p := range []*message.Message{part("g", 3, 3, "c"), part("g", 3, 1, "a")} {
		out, done, err := c.Add(ctx, p)
		require.NoError(t, err)
		assert.False(t, done)
		assert.Nil(t, out)
	}
	assert.Equal(t, 1, c.Pending())

	out, done, err := c.Add(ctx, part("g", 3, 2, "b"))
	require.NoError(t, err)
	require.True(t, done)

	parts, ok := out.Parts()
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b", "c"}, parts.Payloads())
	assert.Equal(t, "g", out.Correlation().ID())
	assert.Equal(t, 0, c.Pending())
	assert.True(t, c.IsProcessed("g"))
}

func TestAdd_Rejections(t *testing.T) {
	c := newTestCorrelator(t, Config{})
	ctx := context.Background()

	_, _, err := c.Add(ctx, message.New("no id"))
	assert.ErrorIs(t, err, ErrNoCorrelationID)

	_, done, err := c.Add(ctx, part("single", 1, 1, "x"))
	require.NoError(t, err)
	require.True(t, done)

	_, _, err = c.Add(ctx, part("single", 1, 1, "again"))
	assert.ErrorIs(t, err, ErrGroupAlreadyProcessed)
}

func TestAdd_ProcessedGroupsAreBounded(t *testing.T) {
	c := newTestCorrelator(t, Config{MaxProcessedGroups: 2})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, done, err := c.Add(ctx, part(id, 1, 1, id))
		require.NoError(t, err)
		require.True(t, done)
	}

	assert.False(t, c.IsProcessed("a"))
	assert.True(t, c.IsProcessed("b"))
	assert.True(t, c.IsProcessed("c"))
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name    string
		fail    bool
		wantErr error
	}{
		{"forwards partial group", false, nil},
		{"fails on timeout", true, ErrGroupTimedOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu      sync.Mutex
				gotID   string
				partial *message.Message
				gotErr  error
			)
			c := newTestCorrelator(t, Config{
				Timeout:         20 * time.Millisecond,
				CleanupInterval: time.Hour,
				FailOnTimeout:   tt.fail,
				OnTimeout: func(id string, p *message.Message, err error) {
					mu.Lock()
					defer mu.Unlock()
					gotID, partial, gotErr = id, p, err
				},
			})

			_, done, err := c.Add(context.Background(), part("slow", 3, 2, "b"))
			require.NoError(t, err)
			require.False(t, done)

			time.Sleep(40 * time.Millisecond)
			c.Sweep()

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "slow", gotID)
			require.NotNil(t, partial)
			parts, _ := partial.Parts()
			assert.Equal(t, []any{"b"}, parts.Payloads())
			if tt.wantErr != nil {
				assert.ErrorIs(t, gotErr, tt.wantErr)
			} else {
				assert.NoError(t, gotErr)
			}

			_, _, err = c.Add(context.Background(), part("slow", 3, 3, "late"))
			assert.ErrorIs(t, err, ErrGroupAlreadyProcessed)
		})
	}
}

func TestTimeout_ExpiredGroupBeforeCleanup(t *testing.T) {
	var (
		mu       sync.Mutex
		timedOut []*message.Message
	)
	c := newTestCorrelator(t, Config{
		Timeout:         50 * time.Millisecond,
		CleanupInterval: time.Hour,
		OnTimeout: func(_ string, partial *message.Message, _ error) {
			mu.Lock()
			defer mu.Unlock()
			timedOut = append(timedOut, partial)
		},
	})
	ctx := context.Background()

	_, _, err := c.Add(ctx, part("g", 2, 1, "a"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	out, done, err := c.Add(ctx, part("g", 2, 2, "b"))
	assert.ErrorIs(t, err, ErrGroupAlreadyProcessed)
	assert.False(t, done)
	assert.Nil(t, out)
	assert.True(t, c.IsProcessed("g"))
	assert.Equal(t, 0, c.Pending())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, timedOut, 1)
	parts, ok := timedOut[0].Parts()
	require.True(t, ok)
	assert.Equal(t, []any{"a"}, parts.Payloads())
}

func TestCompletedGroupDoesNotTimeOut(t *testing.T) {
	called := false
	c := newTestCorrelator(t, Config{
		Timeout:   time.Minute,
		OnTimeout: func(string, *message.Message, error) { called = true },
	})

	_, done, err := c.Add(context.Background(), part("g", 1, 1, "x"))
	require.NoError(t, err)
	require.True(t, done)
	c.Sweep()
	assert.False(t, called)
}

func TestConcurrentAdd(t *testing.T) {
	c := newTestCorrelator(t, Config{})
	const size = 50

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed []*message.Message
	)
	for i := 1; i <= size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, done, err := c.Add(context.Background(), part("g", size, i, i))
			assert.NoError(t, err)
			if done {
				mu.Lock()
				completed = append(completed, out)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, completed, 1)
	parts, _ := completed[0].Parts()
	require.Len(t, parts, size)
	for i, p := range parts {
		assert.Equal(t, i+1, p.Payload())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestResequence_UnnumberedPartsLast(t *testing.T) {
	out := Resequence([]*message.Message{
		message.New("x"),
		part("g", 2, 2, "b"),
		part("g", 2, 1, "a"),
	})
	parts, _ := out.Parts()
	assert.Equal(t, []any{"a", "b", "x"}, parts.Payloads())
}
