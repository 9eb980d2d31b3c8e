package destination

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"outbound-router/internal/circuitbreaker"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

func countingDest(name string, err error) (*Func, *int) {
	calls := 0
	return NewFunc(name, func(ctx context.Context, msg *message.Message, await bool) (*message.Message, error) {
		calls++
		if err != nil {
			return nil, err
		}
		return msg, nil
	}), &calls
}

func TestWithFilter(t *testing.T) {
	inner, calls := countingDest("orders", nil)
	onlyStrings := message.FilterFunc(func(m *message.Message) bool {
		_, ok := m.Payload().(string)
		return ok
	})
	d := WithFilter(inner, onlyStrings)

	assert.True(t, Accepts(d, message.New("yes")))
	assert.False(t, Accepts(d, message.New(42)))

	resp, err := d.Send(context.Background(), message.New(42), true)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 0, *calls)

	resp, err = d.Send(context.Background(), message.New("yes"), true)
	require.NoError(t, err)
	assert.Equal(t, "yes", resp.Payload())
	assert.Equal(t, 1, *calls)
}

func TestWithCircuitBreaker(t *testing.T) {
	inner, calls := countingDest("flaky", fmt.Errorf("connection refused"))
	breaker := circuitbreaker.NewGoBreaker("flaky", circuitbreaker.Config{
		MaxFailures:           2,
		Timeout:               time.Minute,
		MaxConcurrentRequests: 1,
	}, logging.NewNopLogger())
	d := WithCircuitBreaker(inner, breaker)

	for i := 0; i < 2; i++ {
		_, err := d.Send(context.Background(), message.New("x"), true)
		assert.EqualError(t, err, "connection refused")
	}

	_, err := d.Send(context.Background(), message.New("x"), true)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnavailable))
	assert.Equal(t, 2, *calls)
	assert.True(t, breaker.IsOpen())
}

func TestWithRateLimit(t *testing.T) {
	inner, calls := countingDest("slow", nil)
	d := WithRateLimit(inner, rate.NewLimiter(rate.Every(time.Hour), 1))

	_, err := d.Send(context.Background(), message.New("first"), true)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = d.Send(ctx, message.New("second"), true)
	assert.True(t, errors.IsType(err, errors.ErrTypeRateLimit))
	assert.Equal(t, 1, *calls)
}

func TestNewRateLimiter(t *testing.T) {
	assert.Equal(t, 5, NewRateLimiter(5, 0).Burst())
	assert.Equal(t, 1, NewRateLimiter(0.5, 0).Burst())
	assert.Equal(t, 20, NewRateLimiter(5, 20).Burst())
}

func TestAsyncOnly(t *testing.T) {
	var awaited []bool
	inner := NewFunc("audit", func(ctx context.Context, msg *message.Message, await bool) (*message.Message, error) {
		awaited = append(awaited, await)
		return msg, nil
	})
	d := AsyncOnly(inner)

	assert.True(t, YieldsResponse(inner))
	assert.False(t, YieldsResponse(d))

	resp, err := d.Send(context.Background(), message.New("x"), true)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, []bool{false}, awaited)
	assert.Same(t, inner, Unwrap(d))
}
