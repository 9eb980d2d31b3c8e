package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/message"
)

func TestAggregate(t *testing.T) {
	m1, m2, m3 := message.New("a"), message.New("b"), message.New("c")

	assert.Nil(t, Aggregate(nil))
	assert.Nil(t, Aggregate([]*message.Message{nil, nil}))
	assert.Same(t, m1, Aggregate([]*message.Message{m1}))
	assert.Same(t, m2, Aggregate([]*message.Message{nil, m2}))

	agg := Aggregate([]*message.Message{m1, m2, nil, m3})
	require.NotNil(t, agg)
	parts, ok := agg.Parts()
	require.True(t, ok)
	assert.Equal(t, message.Collection{m1, m2, m3}, parts)
	assert.Equal(t, []any{"a", "b", "c"}, parts.Payloads())
}
