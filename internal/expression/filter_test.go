package expression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/message"
)

func TestFilter(t *testing.T) {
	ev := NewEvaluator(time.Minute)

	f, err := NewFilter(ev, "props.region == 'eu'")
	require.NoError(t, err)
	assert.Equal(t, "props.region == 'eu'", f.String())

	assert.True(t, f.Accept(orderMessage()))
	assert.False(t, f.Accept(message.New("x")))

	_, err = NewFilter(ev, "len(payload.items)")
	assert.Error(t, err, "non-boolean filters are rejected at construction")
}

func TestFilter_RuntimeErrorRejects(t *testing.T) {
	f, err := NewFilter(NewEvaluator(time.Minute), "payload.items[5] == 'x'")
	require.NoError(t, err)
	assert.False(t, f.Accept(orderMessage()))
}

func TestCorrelationIDMapper(t *testing.T) {
	ev := NewEvaluator(time.Minute)

	m, err := NewCorrelationIDMapper(ev, "payload.customer.id")
	require.NoError(t, err)
	assert.Equal(t, "c-42", m.CorrelationID(orderMessage()))

	plain := message.New("no customer")
	assert.Equal(t, plain.ID(), m.CorrelationID(plain))

	_, err = NewCorrelationIDMapper(ev, "payload.(")
	assert.Error(t, err)
}
