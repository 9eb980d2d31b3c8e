package routing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/message"
)

// recordingDest records what it receives and echoes the message back when a
// response is awaited
type recordingDest struct {
	name     string
	sendFunc func(ctx context.Context, msg *message.Message, await bool) (*message.Message, error)
	accept   func(msg *message.Message) bool

	mu          sync.Mutex
	received    []*message.Message
	awaits      []bool
	initialised int
	started     int
	stopped     int
	disposed    int
}

func newRecordingDest(name string) *recordingDest {
	return &recordingDest{name: name}
}

func (d *recordingDest) Name() string { return d.name }

func (d *recordingDest) Send(ctx context.Context, msg *message.Message, await bool) (*message.Message, error) {
	d.mu.Lock()
	d.received = append(d.received, msg)
	d.awaits = append(d.awaits, await)
	d.mu.Unlock()

	if d.sendFunc != nil {
		return d.sendFunc(ctx, msg, await)
	}
	if await {
		return msg, nil
	}
	return nil, nil
}

func (d *recordingDest) Accept(msg *message.Message) bool {
	if d.accept == nil {
		return true
	}
	return d.accept(msg)
}

func (d *recordingDest) Initialise() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialised++
	return nil
}

func (d *recordingDest) Start(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started++
	return nil
}

func (d *recordingDest) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped++
	return nil
}

func (d *recordingDest) Dispose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposed++
	return nil
}

func (d *recordingDest) Received() []*message.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*message.Message(nil), d.received...)
}

func (d *recordingDest) payloads() []any {
	var out []any
	for _, m := range d.Received() {
		out = append(out, m.Payload())
	}
	return out
}

func startRouter(t *testing.T, r Router) {
	t.Helper()
	require.NoError(t, r.Initialise())
	require.NoError(t, r.Start(context.Background()))
}

func quietLogger() logging.Logger { return logging.NewNopLogger() }

func quiet() Option { return WithLogger(quietLogger()) }
