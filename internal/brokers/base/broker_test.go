package base

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/brokers"
	"outbound-router/internal/common/errors"
)

type testConfig struct {
	valid bool
}

func (c *testConfig) Validate() error {
	if !c.valid {
		return fmt.Errorf("broken")
	}
	return nil
}
func (c *testConfig) GetConnectionString() string { return "test://host" }
func (c *testConfig) GetType() string             { return "test" }

func TestNewBaseBroker(t *testing.T) {
	b, err := NewBaseBroker("test", &testConfig{valid: true})
	require.NoError(t, err)
	assert.Equal(t, "test", b.Name())
	assert.NotNil(t, b.GetLogger())
	assert.Equal(t, "test", b.GetConfig().GetType())

	_, err = NewBaseBroker("test", &testConfig{valid: false})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "broken")
}

func TestValidateMessage(t *testing.T) {
	assert.Error(t, ValidateMessage(nil))
	assert.Error(t, ValidateMessage(&brokers.Message{}))
	assert.NoError(t, ValidateMessage(&brokers.Message{MessageID: "m1"}))
}

func TestTopicOrDefault(t *testing.T) {
	assert.Equal(t, "orders", TopicOrDefault(&brokers.Message{Topic: "orders"}, "fallback"))
	assert.Equal(t, "fallback", TopicOrDefault(&brokers.Message{}, "fallback"))
}
