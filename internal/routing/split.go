package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"slices"

	"github.com/samber/lo"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
	"outbound-router/internal/sequence"
)

// part is one element of a split. dest is set when the splitter already
// chose the destination.
type part struct {
	value any
	dest  destination.Destination
}

// message builds the child message. Elements that already are messages are
// used as they are; anything else is derived from the original.
func (p part) message(original *message.Message) *message.Message {
	if m, ok := p.value.(*message.Message); ok {
		return m
	}
	return original.Derive(p.value)
}

// SplitMessage is an ordered list of parts, each paired with the destination
// it must be sent to
type SplitMessage struct {
	parts []part
}

// Add appends a part. Both the part and the destination are required.
func (s *SplitMessage) Add(value any, d destination.Destination) error {
	if value == nil {
		return ErrNilPart
	}
	if d == nil {
		return ErrNilDestination
	}
	s.parts = append(s.parts, part{value: value, dest: d})
	return nil
}

// Len returns the number of parts
func (s *SplitMessage) Len() int { return len(s.parts) }

// All yields the parts in order
func (s *SplitMessage) All() iter.Seq[part] { return slices.Values(s.parts) }

func valuesToParts(values sequence.Sequence[any]) sequence.Sequence[part] {
	return sequence.Map(values, func(v any) part { return part{value: v} })
}

// unwrapBatch replaces messages inside a batch by their payloads
func unwrapBatch(batch []any) part {
	return part{value: lo.Map(batch, func(v any, _ int) any {
		if m, ok := v.(*message.Message); ok {
			return m.Payload()
		}
		return v
	})}
}

// partition applies the batch size to a split source
func (b *base) partition(values sequence.Sequence[any]) (sequence.Sequence[part], error) {
	if b.cfg.BatchSize <= 1 {
		return valuesToParts(values), nil
	}
	batches, err := sequence.Partitioned(values, b.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	return sequence.Map(batches, unwrapBatch), nil
}

// routeParts dispatches every part in order, stamping correlation as it goes.
// Parts without a preassigned destination are spread over routes using the
// invocation's round-robin counter. Dispatch is fail-fast.
func (b *base) routeParts(ctx context.Context, event *message.Event, parts sequence.Sequence[part], routes []destination.Destination) (*message.Event, error) {
	defer sequence.Close(parts)

	original := event.Message()
	groupSize := parts.Size()
	if groupSize == sequence.Unknown {
		groupSize = message.UnknownGroupSize
	}

	st := newStamp(b.cfg.Correlation, b.cfg.Mapper, original, b.cfg.Sequential)
	counter := b.counter()
	await := b.awaitResponse(event)

	var responses []*message.Message
	for seq := 1; parts.HasNext(); seq++ {
		p, err := parts.Next()
		if err != nil {
			return nil, fmt.Errorf("router %s: read part %d: %w", b.name, seq, err)
		}

		child := st.apply(p.message(original), groupSize, seq)
		childEvent := event
		if b.cfg.CounterVariable != "" {
			childEvent = childEvent.WithVariable(b.cfg.CounterVariable, seq)
		}
		if b.cfg.RootMessageVariable != "" {
			childEvent = childEvent.WithVariable(b.cfg.RootMessageVariable, original)
		}

		d := p.dest
		if d == nil {
			d, err = b.selectRoute(routes, counter, child)
			if stderrors.Is(err, ErrNoMatchingRoute) && !b.cfg.FailIfNoMatch {
				b.logger.Warn("No route accepted message part, skipping",
					logging.Int("sequence", seq),
					logging.MessageID(child.ID()),
				)
				continue
			}
			if err != nil {
				return nil, wrapRoutingError(b.name, nil, childEvent, err)
			}
		}

		resp, err := b.send(ctx, childEvent, child, d, await)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			responses = append(responses, resp)
		}
	}
	return b.result(event, responses), nil
}

// SplitFunc splits msg into parts mapped to destinations chosen from routes
type SplitFunc func(ctx context.Context, msg *message.Message, routes []destination.Destination) (*SplitMessage, error)

// Splitter sends the parts produced by a SplitFunc to the destinations the
// function chose for them
type Splitter struct {
	*base
	split SplitFunc
}

// NewSplitter creates a splitter driven by split
func NewSplitter(name string, split SplitFunc, routes []destination.Destination, opts ...Option) (*Splitter, error) {
	if split == nil {
		return nil, apperrors.ConfigErrorf("router %s: split function is required", name)
	}
	b, err := newBase(name, KindSplitter, routes, opts)
	if err != nil {
		return nil, err
	}
	return &Splitter{base: b, split: split}, nil
}

func (r *Splitter) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}

	split, err := r.split(ctx, event.Message(), r.snapshot())
	if err != nil {
		return nil, wrapRoutingError(r.name, nil, event, err)
	}
	if split == nil || split.Len() == 0 {
		r.logger.Warn("Split produced no parts", logging.MessageID(event.Message().ID()))
		return message.NoResult(), nil
	}
	return r.routeParts(ctx, event, sequence.FromCollection[part](split), nil)
}

// SourceFunc produces the values to split from an event
type SourceFunc func(ctx context.Context, event *message.Event) (sequence.Sequence[any], error)

// ListSplitter splits a list into parts and spreads them over its routes,
// skipping routes whose filter rejects a part
type ListSplitter struct {
	*base
	source SourceFunc
}

// PayloadList is the default split source: the payload itself, which must
// be a list
func PayloadList(_ context.Context, event *message.Event) (sequence.Sequence[any], error) {
	seq, ok := sequence.FromAny(event.Message().Payload())
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotAList, event.Message().Payload())
	}
	return seq, nil
}

// NewRoundRobin creates a list splitter that rotates through its routes
func NewRoundRobin(name string, routes []destination.Destination, opts ...Option) (*ListSplitter, error) {
	return newListSplitter(name, KindRoundRobin, PayloadList, routes, opts)
}

// NewListSplitter creates a list splitter that sends every part to the first
// route that accepts it
func NewListSplitter(name string, routes []destination.Destination, opts ...Option) (*ListSplitter, error) {
	opts = append([]Option{WithDisableRoundRobin(true)}, opts...)
	return newListSplitter(name, KindSplitter, PayloadList, routes, opts)
}

// NewSourceSplitter creates a round-robin list splitter over a custom source
func NewSourceSplitter(name string, source SourceFunc, routes []destination.Destination, opts ...Option) (*ListSplitter, error) {
	if source == nil {
		return nil, apperrors.ConfigErrorf("router %s: split source is required", name)
	}
	return newListSplitter(name, KindRoundRobin, source, routes, opts)
}

func newListSplitter(name, kind string, source SourceFunc, routes []destination.Destination, opts []Option) (*ListSplitter, error) {
	b, err := newBase(name, kind, routes, opts)
	if err != nil {
		return nil, err
	}
	b.validateRoutes = requireRoutes
	return &ListSplitter{base: b, source: source}, nil
}

func (r *ListSplitter) Route(ctx context.Context, event *message.Event) (*message.Event, error) {
	if err := r.checkStarted(); err != nil {
		return nil, err
	}
	routes := r.snapshot()
	if len(routes) == 0 {
		return nil, fmt.Errorf("router %s: %w", r.name, ErrNoRoutes)
	}

	values, err := r.source(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("router %s: %w", r.name, err)
	}
	if values.IsEmpty() {
		sequence.Close(values)
		r.logger.Warn("Split produced no parts", logging.MessageID(event.Message().ID()))
		return message.NoResult(), nil
	}

	parts, err := r.partition(values)
	if err != nil {
		sequence.Close(values)
		return nil, fmt.Errorf("router %s: %w", r.name, err)
	}
	return r.routeParts(ctx, event, parts, routes)
}

// Evaluator evaluates expressions against the routed event
type Evaluator interface {
	EvaluateEvent(expression string, event *message.Event) (any, error)
	IsValidExpression(expression string) bool
}

// NewExpressionSplitter creates a round-robin splitter over the result of
// expr. A list result is split; nil is an empty split; any other value is a
// single part.
func NewExpressionSplitter(name string, evaluator Evaluator, expr string, routes []destination.Destination, opts ...Option) (*ListSplitter, error) {
	if evaluator == nil || !evaluator.IsValidExpression(expr) {
		return nil, apperrors.ConfigErrorf("router %s: invalid split expression %q", name, expr)
	}
	source := func(_ context.Context, event *message.Event) (sequence.Sequence[any], error) {
		v, err := evaluator.EvaluateEvent(expr, event)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return sequence.FromSlice[any](nil), nil
		}
		if seq, ok := sequence.FromAny(v); ok {
			return seq, nil
		}
		return sequence.FromSlice([]any{v}), nil
	}
	return newListSplitter(name, KindExpressionSplit, source, routes, opts)
}

func requireRoutes(routes []destination.Destination) error {
	if len(routes) == 0 {
		return ErrNoRoutes
	}
	return nil
}
