package destination

import (
	"context"

	"golang.org/x/time/rate"

	"outbound-router/internal/circuitbreaker"
	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

type filtered struct {
	wrapper
	filter message.Filter
	logger logging.Logger
}

// WithFilter guards d with f. Round-robin selection skips destinations whose
// filter rejects a part; any other caller gets no response for a rejected
// message.
func WithFilter(d Destination, f message.Filter) Destination {
	return &filtered{
		wrapper: wrapper{inner: d},
		filter:  f,
		logger:  logging.GetGlobalLogger().WithFields(logging.Destination(d.Name())),
	}
}

func (f *filtered) Accept(msg *message.Message) bool {
	return f.filter.Accept(msg) && Accepts(f.inner, msg)
}

func (f *filtered) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	if !f.Accept(msg) {
		f.logger.Debug("Message rejected by destination filter", logging.MessageID(msg.ID()))
		return nil, nil
	}
	return f.inner.Send(ctx, msg, awaitResponse)
}

type breakered struct {
	wrapper
	breaker *circuitbreaker.Breaker
}

// WithCircuitBreaker runs every send through b. While the breaker is open
// sends fail fast with an unavailable error.
func WithCircuitBreaker(d Destination, b *circuitbreaker.Breaker) Destination {
	return &breakered{wrapper: wrapper{inner: d}, breaker: b}
}

func (b *breakered) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	var resp *message.Message
	err := b.breaker.Execute(ctx, func() error {
		var sendErr error
		resp, sendErr = b.inner.Send(ctx, msg, awaitResponse)
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Breaker returns the breaker guarding the destination
func (b *breakered) Breaker() *circuitbreaker.Breaker {
	return b.breaker
}

type limited struct {
	wrapper
	limiter *rate.Limiter
}

// WithRateLimit blocks each send until limiter grants a token
func WithRateLimit(d Destination, limiter *rate.Limiter) Destination {
	return &limited{wrapper: wrapper{inner: d}, limiter: limiter}
}

// NewRateLimiter returns a token bucket allowing rps sends per second.
// burst defaults to one second's worth of tokens.
func NewRateLimiter(rps float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = max(1, int(rps))
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (l *limited) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, errors.RateLimitError(l.Name()).WithCause(err)
	}
	return l.inner.Send(ctx, msg, awaitResponse)
}

type asyncOnly struct {
	wrapper
}

// AsyncOnly makes every send to d fire-and-forget. The decorated destination
// never yields a response, so it cannot sit before the last route of an
// exception fallback.
func AsyncOnly(d Destination) Destination {
	return asyncOnly{wrapper: wrapper{inner: d}}
}

func (asyncOnly) YieldsResponse() bool { return false }

func (a asyncOnly) Send(ctx context.Context, msg *message.Message, _ bool) (*message.Message, error) {
	_, err := a.inner.Send(ctx, msg, false)
	return nil, err
}
