package routing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"outbound-router/internal/destination"
)

// State is a router lifecycle state
type State int32

const (
	StateUninitialised State = iota
	StateInitialised
	StateStarted
	StateStopped
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateInitialised:
		return "initialised"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var transitions = map[State][]State{
	StateUninitialised: {StateInitialised, StateDisposed},
	StateInitialised:   {StateStarted, StateDisposed},
	StateStarted:       {StateStopped},
	StateStopped:       {StateStarted, StateDisposed},
}

// lifecycle serialises state transitions and route mutations. Route reads
// never take the lock.
type lifecycle struct {
	mu     sync.Mutex
	state  atomic.Int32
	routes atomic.Pointer[[]destination.Destination]
}

// State returns the current lifecycle state
func (l *lifecycle) State() State {
	return State(l.state.Load())
}

// transition moves to next after apply succeeds. Callers hold l.mu.
func (l *lifecycle) transition(next State, apply func() error) error {
	current := l.State()
	if !slices.Contains(transitions[current], next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	if apply != nil {
		if err := apply(); err != nil {
			return err
		}
	}
	l.state.Store(int32(next))
	return nil
}

// snapshot returns the current route list. The slice must not be modified.
func (l *lifecycle) snapshot() []destination.Destination {
	if p := l.routes.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *lifecycle) store(routes []destination.Destination) {
	l.routes.Store(&routes)
}

// catchUp brings a route added later to the router's current state
func (l *lifecycle) catchUp(ctx context.Context, d destination.Destination) error {
	switch l.State() {
	case StateInitialised, StateStopped:
		return destination.Initialise(d)
	case StateStarted:
		if err := destination.Initialise(d); err != nil {
			return err
		}
		return destination.Start(ctx, d)
	case StateDisposed:
		return fmt.Errorf("%w: router is disposed", ErrInvalidTransition)
	default:
		return nil
	}
}
