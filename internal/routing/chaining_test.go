package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/message"
)

func appendStep(step string) func(context.Context, *message.Message, bool) (*message.Message, error) {
	return func(_ context.Context, msg *message.Message, _ bool) (*message.Message, error) {
		return message.New(msg.Payload().(string) + step), nil
	}
}

func TestChaining_ThreadsResponses(t *testing.T) {
	a, b, c := newRecordingDest("a"), newRecordingDest("b"), newRecordingDest("c")
	a.sendFunc = appendStep("-a")
	b.sendFunc = appendStep("-b")
	c.sendFunc = appendStep("-c")

	r, err := NewChaining("chain", dests(a, b, c), quiet(), WithCorrelationIDMapper(fixedID("X")))
	require.NoError(t, err)
	startRouter(t, r)

	result, err := r.Route(context.Background(), message.NewEvent(message.New("in")))
	require.NoError(t, err)

	assert.Equal(t, "in-a-b-c", result.Message().Payload())
	assert.Equal(t, []any{"in-a"}, b.payloads())
	assert.Equal(t, "X", b.Received()[0].Correlation().ID())
	assert.Equal(t, "X", c.Received()[0].Correlation().ID())
}

func TestChaining_OnlyLastRouteUsesCallerPattern(t *testing.T) {
	a, b := newRecordingDest("a"), newRecordingDest("b")
	r, err := NewChaining("chain", dests(a, b), quiet())
	require.NoError(t, err)
	startRouter(t, r)

	result, err := r.Route(context.Background(), message.NewEvent(message.New("in"), message.Synchronous(false)))
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, a.awaits)
	assert.Equal(t, []bool{false}, b.awaits)
	assert.True(t, result.IsNoResult())
}

func TestChaining_StopsOnNullPayload(t *testing.T) {
	a, b := newRecordingDest("a"), newRecordingDest("b")
	a.sendFunc = func(context.Context, *message.Message, bool) (*message.Message, error) {
		return message.New(nil), nil
	}

	r, err := NewChaining("chain", dests(a, b), quiet())
	require.NoError(t, err)
	startRouter(t, r)

	result, err := r.Route(context.Background(), message.NewEvent(message.New("in")))
	require.NoError(t, err)

	assert.Empty(t, b.Received())
	require.False(t, result.IsNoResult())
	assert.True(t, result.Message().IsNullPayload())
}

func TestChaining_StopsOnNilResponse(t *testing.T) {
	a, b := newRecordingDest("a"), newRecordingDest("b")
	a.sendFunc = func(context.Context, *message.Message, bool) (*message.Message, error) {
		return nil, nil
	}

	r, err := NewChaining("chain", dests(a, b), quiet())
	require.NoError(t, err)
	startRouter(t, r)

	result, err := r.Route(context.Background(), message.NewEvent(message.New("in")))
	require.NoError(t, err)
	assert.True(t, result.IsNoResult())
	assert.Empty(t, b.Received())
}

func TestChaining_CarriesReplyTo(t *testing.T) {
	prev := message.New("p").WithOutboundProperty(message.PropertyReplyTo, "replies")
	next := carryForward(prev.WithCorrelation(message.NewCorrelation("c", 2, 1)), message.New("n"))

	assert.Equal(t, "replies", next.ReplyTo())
	assert.Equal(t, message.NewCorrelation("c", 2, 1), next.Correlation())
}
