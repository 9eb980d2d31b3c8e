package definitions

import (
	"cmp"
	"context"

	"outbound-router/internal/common/errors"
	"outbound-router/internal/destination"
	"outbound-router/internal/expression"
	"outbound-router/internal/message"
	"outbound-router/internal/routing"
	"outbound-router/internal/transform"
)

func (b *Builder) buildRouter(def RouterDef) (routing.Router, error) {
	routes, err := b.routes(def)
	if err != nil {
		return nil, err
	}
	opts, err := b.routerOptions(def)
	if err != nil {
		return nil, err
	}

	switch def.Type {
	case TypePassThrough:
		return routing.NewPassThrough(def.Name, routes, opts...)
	case TypeRoundRobin:
		return routing.NewRoundRobin(def.Name, routes, opts...)
	case TypeSplitter:
		return routing.NewListSplitter(def.Name, routes, opts...)
	case TypeExpressionSplitter:
		return routing.NewExpressionSplitter(def.Name, b.evaluator, def.Expression, routes, opts...)
	case TypeChaining:
		return routing.NewChaining(def.Name, routes, opts...)
	case TypeMulticast:
		return routing.NewMulticast(def.Name, routes, opts...)
	case TypeScatterGather:
		return routing.NewScatterGather(def.Name, routes, opts...)

	case TypeRecipientList:
		cfg, err := b.recipientConfig(def)
		if err != nil {
			return nil, err
		}
		return routing.NewRecipientList(def.Name, cfg, opts...)

	case TypeExceptionFallback:
		if len(routes) > 0 {
			return routing.NewExceptionFallback(def.Name, routes, opts...)
		}
		cfg, err := b.recipientConfig(def)
		if err != nil {
			return nil, err
		}
		return routing.NewDynamicExceptionFallback(def.Name, cfg, opts...)

	case TypeTransform:
		t, err := b.transformer(def)
		if err != nil {
			return nil, err
		}
		return routing.NewTransformRouter(def.Name, t, routes, opts...)
	}
	return nil, errors.ConfigErrorf("router %q has unknown type %q", def.Name, def.Type)
}

func (b *Builder) routes(def RouterDef) ([]destination.Destination, error) {
	routes := make([]destination.Destination, 0, len(def.Routes))
	for _, name := range def.Routes {
		d, err := b.destinations.Resolve(context.Background(), name)
		if err != nil {
			return nil, errors.ConfigErrorf("router %q", def.Name).WithCause(err)
		}
		routes = append(routes, d)
	}
	return routes, nil
}

func (b *Builder) routerOptions(def RouterDef) ([]routing.Option, error) {
	o := def.Options
	opts := []routing.Option{routing.WithLogger(b.logger)}

	mode := b.defaults.Correlation
	if o.Correlation != "" {
		parsed, err := routing.ParseCorrelationMode(o.Correlation)
		if err != nil {
			return nil, errors.ConfigErrorf("router %q", def.Name).WithCause(err)
		}
		mode = parsed
	}
	opts = append(opts, routing.WithCorrelation(mode), routing.WithSequentialCorrelation(o.SequentialCorrelation))

	if o.CorrelationIDExpression != "" {
		mapper, err := expression.NewCorrelationIDMapper(b.evaluator, o.CorrelationIDExpression)
		if err != nil {
			return nil, errors.ConfigErrorf("router %q: invalid correlation id expression", def.Name).WithCause(err)
		}
		opts = append(opts, routing.WithCorrelationIDMapper(mapper))
	}

	if def.Filter != "" {
		f, err := expression.NewFilter(b.evaluator, def.Filter)
		if err != nil {
			return nil, errors.ConfigErrorf("router %q: invalid filter", def.Name).WithCause(err)
		}
		opts = append(opts, routing.WithFilter(f))
	}

	deterministic := b.defaults.Deterministic
	if o.Deterministic != nil {
		deterministic = *o.Deterministic
	}
	opts = append(opts,
		routing.WithDeterministic(deterministic),
		routing.WithBatchSize(o.BatchSize),
		routing.WithCounterVariable(o.CounterVariable),
		routing.WithRootMessageVariable(o.RootMessageVariable),
		routing.WithReplyTo(o.ReplyTo),
		routing.WithMaxConcurrency(cmp.Or(o.MaxConcurrency, b.defaults.MaxConcurrency)),
		routing.WithRouteDisposal(o.DisposeRoutes),
		routing.WithDisableRoundRobin(o.DisableRoundRobin),
	)
	if b.defaults.Counter != nil {
		opts = append(opts, routing.WithCounter(b.defaults.Counter))
	}
	if o.Synchronous != nil {
		opts = append(opts, routing.WithSynchronous(*o.Synchronous))
	}
	if o.FailIfNoMatch != nil {
		opts = append(opts, routing.WithFailIfNoMatch(*o.FailIfNoMatch))
	}
	if o.StopOnError {
		opts = append(opts, routing.WithContinuePredicate(func(_ *message.Message, err error) bool {
			return err == nil
		}))
	}
	return opts, nil
}

func (b *Builder) recipientConfig(def RouterDef) (routing.RecipientListConfig, error) {
	cfg := routing.RecipientListConfig{
		Resolver: b.destinations,
		CacheTTL: b.defaults.RecipientCacheTTL,
	}
	if def.Options.RecipientCacheTTL != nil {
		cfg.CacheTTL = def.Options.RecipientCacheTTL.Std()
	}

	switch {
	case len(def.Recipients) > 0:
		cfg.Recipients = routing.StaticRecipients(def.Recipients...)
	case def.RecipientProperty != "":
		cfg.Recipients = routing.PropertyRecipients(def.RecipientProperty)
	case def.Expression != "":
		recipients, err := routing.ExpressionRecipients(b.evaluator, def.Expression)
		if err != nil {
			return cfg, err
		}
		cfg.Recipients = recipients
	default:
		return cfg, errors.ConfigErrorf("router %q needs recipients, recipient_property or expression", def.Name)
	}
	return cfg, nil
}

func (b *Builder) transformer(def RouterDef) (transform.Transformer, error) {
	switch {
	case def.Script != "":
		return transform.NewJavaScript(def.Name, transform.JavaScriptConfig{
			Script:  def.Script,
			Timeout: def.Options.ScriptTimeout.Std(),
		})
	case def.Expression != "":
		t, err := transform.NewExpression(b.evaluator, def.Expression)
		if err != nil {
			return nil, errors.ConfigErrorf("router %q: invalid transform expression", def.Name).WithCause(err)
		}
		return t, nil
	}
	return nil, errors.ConfigErrorf("router %q needs a script or an expression", def.Name)
}
