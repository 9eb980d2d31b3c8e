package definitions

import (
	"encoding/json"

	goredis "github.com/go-redis/redis/v8"

	"outbound-router/internal/brokers"
	awsbroker "outbound-router/internal/brokers/aws"
	"outbound-router/internal/brokers/gcp"
	"outbound-router/internal/brokers/kafka"
	"outbound-router/internal/brokers/rabbitmq"
	redisbroker "outbound-router/internal/brokers/redis"
	"outbound-router/internal/circuitbreaker"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/correlator"
	"outbound-router/internal/destination"
	"outbound-router/internal/expression"
)

// BrokerRegistry returns a registry holding every supported broker type
func BrokerRegistry() *brokers.Registry {
	r := brokers.NewRegistry()
	r.Register(redisbroker.Factory{})
	r.Register(rabbitmq.Factory{})
	r.Register(kafka.Factory{})
	r.Register(awsbroker.SQSFactory{})
	r.Register(awsbroker.SNSFactory{})
	r.Register(gcp.Factory{})
	return r
}

func (b *Builder) buildDestination(def DestinationDef) (destination.Destination, error) {
	d, err := b.newDestination(def)
	if err != nil {
		return nil, err
	}

	if def.RateLimit != nil {
		d = destination.WithRateLimit(d, destination.NewRateLimiter(def.RateLimit.RequestsPerSecond, def.RateLimit.Burst))
	}
	if def.CircuitBreaker != nil {
		cfg := circuitbreaker.DefaultConfig()
		if def.CircuitBreaker.MaxFailures > 0 {
			cfg.MaxFailures = def.CircuitBreaker.MaxFailures
		}
		if def.CircuitBreaker.Timeout > 0 {
			cfg.Timeout = def.CircuitBreaker.Timeout.Std()
		}
		if def.CircuitBreaker.MaxConcurrentRequests > 0 {
			cfg.MaxConcurrentRequests = def.CircuitBreaker.MaxConcurrentRequests
		}
		d = destination.WithCircuitBreaker(d, circuitbreaker.NewGoBreaker(def.Name, cfg, b.logger))
	}
	if def.Filter != "" {
		f, err := expression.NewFilter(b.evaluator, def.Filter)
		if err != nil {
			return nil, errors.ConfigErrorf("destination %q: invalid filter", def.Name).WithCause(err)
		}
		d = destination.WithFilter(d, f)
	}
	if def.AsyncOnly {
		d = destination.AsyncOnly(d)
	}
	return d, nil
}

func (b *Builder) newDestination(def DestinationDef) (destination.Destination, error) {
	switch def.Type {
	case TypeLog:
		return destination.NewLog(def.Name, b.logger), nil

	case TypeHTTP:
		var cfg destination.HTTPConfig
		if err := decode(def, &cfg); err != nil {
			return nil, err
		}
		return destination.NewHTTP(def.Name, &cfg)

	case TypeAggregator:
		return b.newAggregator(def)
	}

	if !b.brokers.IsRegistered(def.Type) {
		return nil, errors.ConfigErrorf("destination %q has unknown type %q", def.Name, def.Type)
	}
	cfg, err := b.brokers.NewConfig(def.Type)
	if err != nil {
		return nil, err
	}
	if err := b.applyBrokerDefaults(cfg); err != nil {
		return nil, errors.ConfigErrorf("destination %q", def.Name).WithCause(err)
	}
	if err := decode(def, cfg); err != nil {
		return nil, err
	}
	broker, err := b.brokers.Create(def.Type, cfg)
	if err != nil {
		return nil, errors.ConfigErrorf("destination %q: failed to create %s broker", def.Name, def.Type).WithCause(err)
	}
	return destination.NewBroker(def.Name, broker, def.Publish), nil
}

func (b *Builder) newAggregator(def DestinationDef) (destination.Destination, error) {
	var agg AggregatorDef
	if err := decode(def, &agg); err != nil {
		return nil, err
	}
	target, ok := b.destinations.Get(agg.Target)
	if !ok {
		return nil, errors.ConfigErrorf("aggregator %q: target %q must be declared before it", def.Name, agg.Target)
	}

	cfg := correlator.DefaultConfig()
	if b.defaults.CorrelatorTimeout > 0 {
		cfg.Timeout = b.defaults.CorrelatorTimeout
	}
	if agg.Timeout > 0 {
		cfg.Timeout = agg.Timeout.Std()
	}
	if agg.MaxProcessedGroups > 0 {
		cfg.MaxProcessedGroups = agg.MaxProcessedGroups
	}
	cfg.FailOnTimeout = agg.FailOnTimeout
	cfg.Logger = b.logger

	d, err := correlator.NewDestination(def.Name, cfg, target)
	if err != nil {
		return nil, errors.ConfigErrorf("aggregator %q", def.Name).WithCause(err)
	}
	return d, nil
}

// applyBrokerDefaults fills connection settings from the environment before
// the definition's own config is decoded over them
func (b *Builder) applyBrokerDefaults(cfg brokers.BrokerConfig) error {
	defaults := b.defaults
	switch c := cfg.(type) {
	case *redisbroker.Config:
		if defaults.RedisURL == "" {
			return nil
		}
		opts, err := goredis.ParseURL(defaults.RedisURL)
		if err != nil {
			return err
		}
		c.Address, c.Password, c.DB = opts.Addr, opts.Password, opts.DB
	case *rabbitmq.Config:
		c.URL = defaults.RabbitMQURL
	case *kafka.Config:
		c.Brokers = defaults.KafkaBrokers
	case *awsbroker.SQSConfig:
		c.Region = defaults.AWSRegion
	case *awsbroker.SNSConfig:
		c.Region = defaults.AWSRegion
	case *gcp.Config:
		c.ProjectID = defaults.GCPProjectID
	}
	return nil
}

func decode(def DestinationDef, into any) error {
	if len(def.Config) == 0 {
		return nil
	}
	if err := json.Unmarshal(def.Config, into); err != nil {
		return errors.ConfigErrorf("destination %q: invalid %s config", def.Name, def.Type).WithCause(err)
	}
	return nil
}
