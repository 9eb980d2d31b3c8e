package brokers

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"outbound-router/internal/common/errors"
)

// Registry maps broker type names to factories
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds factory under its type, replacing any previous one
func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.GetType()] = factory
}

func (r *Registry) factory(brokerType string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[brokerType]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("broker type %s", brokerType))
	}
	return factory, nil
}

// Create builds a broker from an already decoded config
func (r *Registry) Create(brokerType string, config BrokerConfig) (Broker, error) {
	factory, err := r.factory(brokerType)
	if err != nil {
		return nil, err
	}
	return factory.Create(config)
}

// NewConfig returns an empty config of brokerType's concrete type, ready for
// defaults and decoding
func (r *Registry) NewConfig(brokerType string) (BrokerConfig, error) {
	factory, err := r.factory(brokerType)
	if err != nil {
		return nil, err
	}
	return factory.NewConfig(), nil
}

// CreateFromJSON decodes raw into the factory's config type and builds a broker
func (r *Registry) CreateFromJSON(brokerType string, raw json.RawMessage) (Broker, error) {
	factory, err := r.factory(brokerType)
	if err != nil {
		return nil, err
	}

	config := factory.NewConfig()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, config); err != nil {
			return nil, errors.ConfigErrorf("invalid %s broker config", brokerType).WithCause(err)
		}
	}
	return factory.Create(config)
}

// GetAvailableTypes returns the registered type names, sorted
func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := lo.Keys(r.factories)
	sort.Strings(types)
	return types
}

// IsRegistered reports whether brokerType has a factory
func (r *Registry) IsRegistered(brokerType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[brokerType]
	return exists
}
