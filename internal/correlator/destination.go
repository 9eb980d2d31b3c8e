package correlator

import (
	"context"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

// Destination collects split parts and forwards each reassembled group to
// target. Expired groups are forwarded as partial groups unless the
// correlator fails on timeout.
type Destination struct {
	name       string
	correlator *Correlator
	target     destination.Destination
	logger     logging.Logger
}

// NewDestination creates an aggregating destination in front of target
func NewDestination(name string, cfg Config, target destination.Destination) (*Destination, error) {
	d := &Destination{name: name, target: target}

	onTimeout := cfg.OnTimeout
	cfg.OnTimeout = func(id string, partial *message.Message, err error) {
		if onTimeout != nil {
			onTimeout(id, partial, err)
		}
		if err != nil {
			return
		}
		ctx := message.ContextWithEvent(context.Background(), message.NewEvent(partial, message.Synchronous(false)))
		if _, sendErr := target.Send(ctx, partial, false); sendErr != nil {
			d.logger.Error("Failed to forward partial group", sendErr, logging.CorrelationID(id))
		}
	}

	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	d.correlator = c
	d.logger = c.logger.WithFields(logging.Destination(name))
	return d, nil
}

func (d *Destination) Name() string { return d.name }

// Correlator returns the underlying correlator
func (d *Destination) Correlator() *Correlator { return d.correlator }

// Send adds msg to its group. Until the group completes nothing is returned.
func (d *Destination) Send(ctx context.Context, msg *message.Message, awaitResponse bool) (*message.Message, error) {
	group, done, err := d.correlator.Add(ctx, msg)
	if err != nil || !done {
		return nil, err
	}
	return d.target.Send(ctx, group, awaitResponse)
}

// Start starts the target
func (d *Destination) Start(ctx context.Context) error { return destination.Start(ctx, d.target) }

// Stop stops the target
func (d *Destination) Stop(ctx context.Context) error { return destination.Stop(ctx, d.target) }
