package brokers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/errors"
)

type fakeConfig struct {
	Address string `json:"address"`
}

func (c *fakeConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}
func (c *fakeConfig) GetConnectionString() string { return c.Address }
func (c *fakeConfig) GetType() string             { return "fake" }

type fakeBroker struct {
	config *fakeConfig
}

func (b *fakeBroker) Name() string                            { return "fake" }
func (b *fakeBroker) Publish(context.Context, *Message) error { return nil }
func (b *fakeBroker) Health(context.Context) error            { return nil }
func (b *fakeBroker) Close() error                            { return nil }

type fakeFactory struct{}

func (fakeFactory) GetType() string         { return "fake" }
func (fakeFactory) NewConfig() BrokerConfig { return &fakeConfig{} }
func (fakeFactory) Create(config BrokerConfig) (Broker, error) {
	cfg, ok := config.(*fakeConfig)
	if !ok {
		return nil, fmt.Errorf("wrong config type %T", config)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &fakeBroker{config: cfg}, nil
}

func TestRegistry_Create(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeFactory{})

	assert.True(t, r.IsRegistered("fake"))
	assert.False(t, r.IsRegistered("kafka"))
	assert.Equal(t, []string{"fake"}, r.GetAvailableTypes())

	b, err := r.Create("fake", &fakeConfig{Address: "here"})
	require.NoError(t, err)
	assert.Equal(t, "fake", b.Name())

	_, err = r.Create("kafka", &fakeConfig{})
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestRegistry_CreateFromJSON(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeFactory{})

	b, err := r.CreateFromJSON("fake", json.RawMessage(`{"address":"localhost:1"}`))
	require.NoError(t, err)
	assert.Equal(t, "localhost:1", b.(*fakeBroker).config.Address)

	_, err = r.CreateFromJSON("fake", json.RawMessage(`{"address":`))
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = r.CreateFromJSON("fake", nil)
	assert.EqualError(t, err, "address is required")
}

func TestRegistry_NewConfig(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeFactory{})

	cfg, err := r.NewConfig("fake")
	require.NoError(t, err)
	assert.IsType(t, &fakeConfig{}, cfg)

	_, err = r.NewConfig("sqs")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}
