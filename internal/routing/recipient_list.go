package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"outbound-router/internal/common/cache"
	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// RecipientsFunc resolves the recipient names for an event
type RecipientsFunc func(ctx context.Context, event *message.Event) ([]string, error)

// StaticRecipients always returns the same recipients
func StaticRecipients(recipients ...string) RecipientsFunc {
	return func(context.Context, *message.Event) ([]string, error) {
		return recipients, nil
	}
}

// PropertyRecipients reads recipients from a message property. A string
// value is split on commas; a list is used element by element.
func PropertyRecipients(property string) RecipientsFunc {
	return func(_ context.Context, event *message.Event) ([]string, error) {
		v, ok := event.Message().Property(property)
		if !ok {
			return nil, nil
		}
		return toRecipients(v)
	}
}

// ExpressionRecipients evaluates expr and converts the result like
// PropertyRecipients does
func ExpressionRecipients(evaluator Evaluator, expr string) (RecipientsFunc, error) {
	if evaluator == nil || !evaluator.IsValidExpression(expr) {
		return nil, apperrors.ConfigErrorf("invalid recipient expression %q", expr)
	}
	return func(_ context.Context, event *message.Event) ([]string, error) {
		v, err := evaluator.EvaluateEvent(expr, event)
		if err != nil {
			return nil, err
		}
		return toRecipients(v)
	}, nil
}

func toRecipients(v any) ([]string, error) {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		raw = make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("recipient must be a string, got %T", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("unsupported recipient list type %T", v)
	}
	return lo.Compact(lo.Map(raw, func(s string, _ int) string { return strings.TrimSpace(s) })), nil
}

// recipientResolver resolves recipient names to destinations and caches the
// result. Concurrent resolutions of the same name all get the first stored
// destination.
type recipientResolver struct {
	resolver destination.Resolver
	cache    cache.Cache
	ttl      time.Duration
}

func newRecipientResolver(resolver destination.Resolver, c cache.Cache, ttl time.Duration) *recipientResolver {
	if c == nil {
		c = cache.NewLocalCache(cache.NoExpiration, 0)
	}
	if ttl == 0 {
		ttl = cache.NoExpiration
	}
	return &recipientResolver{resolver: resolver, cache: c, ttl: ttl}
}

func (r *recipientResolver) resolve(ctx context.Context, recipient string) (destination.Destination, error) {
	if v, ok := r.cache.Get(ctx, recipient); ok {
		return v.(destination.Destination), nil
	}
	d, err := r.resolver.Resolve(ctx, recipient)
	if err != nil {
		return nil, err
	}
	actual, _, err := cache.GetOrSet(ctx, r.cache, recipient, d, r.ttl)
	if err != nil {
		return nil, err
	}
	return actual.(destination.Destination), nil
}

func (r *recipientResolver) resolveAll(ctx context.Context, recipients []string) ([]destination.Destination, error) {
	dests := make([]destination.Destination, 0, len(recipients))
	for _, name := range recipients {
		d, err := r.resolve(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve recipient %q: %w", name, err)
		}
		dests = append(dests, d)
	}
	return dests, nil
}

// RecipientListConfig configures recipient resolution
type RecipientListConfig struct {
	Recipients RecipientsFunc
	Resolver   destination.Resolver
	// Cache stores resolved destinations; defaults to an in-memory cache
	Cache cache.Cache
	// CacheTTL is how long resolved destinations stay cached; 0 keeps them
	CacheTTL time.Duration
}

// RecipientList sends a copy of the message to every recipient resolved for
// it. Every copy carries the recipient count as its group size.
type RecipientList struct {
	*base
	recipients RecipientsFunc
	resolver   *recipientResolver
}

// NewRecipientList creates a recipient list router
func NewRecipientList(name string, cfg RecipientListConfig, opts ...Option) (*RecipientList, error) {
	if cfg.Recipients == nil || cfg.Resolver == nil {
		return nil, apperrors.ConfigErrorf("router %s: recipients and resolver are required", name)
	}
	b, err := newBase(name, KindRecipientList, nil, opts)
	if err != nil {
		return nil, err
	}
	return &RecipientList{
		base:       b,
		recipients: cfg.Recipients,
		resolver:   newRecipientResolver(cfg.Resolver, cfg.Cache, cfg.CacheTTL),
	}, nil
}

func (r *RecipientList) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}

	recipients, err := r.recipients(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("router %s: %w", r.name, err)
	}
	if len(recipients) == 0 {
		r.logger.Warn("No recipients resolved", logging.MessageID(event.Message().ID()))
		return message.NoResult(), nil
	}

	dests, err := r.resolver.resolveAll(ctx, recipients)
	if err != nil {
		return nil, wrapRoutingError(r.name, nil, event, err)
	}

	original := event.Message()
	st := newStamp(r.cfg.Correlation, r.cfg.Mapper, original, r.cfg.Sequential)
	await := r.awaitResponse(event)

	var responses []*message.Message
	for i, d := range dests {
		cp, err := original.Clone()
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", r.name, err)
		}
		msg := st.apply(cp, len(dests), i+1)

		resp, err := r.send(ctx, event, msg, d, await)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			responses = append(responses, resp)
		}
	}
	return r.result(event, responses), nil
}
