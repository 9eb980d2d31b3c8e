package routing

import (
	"errors"
	"fmt"

	apperrors "outbound-router/internal/common/errors"
	"outbound-router/internal/destination"
	"outbound-router/internal/message"
)

var (
	// ErrNotStarted is returned by Route when the router is not started
	ErrNotStarted = errors.New("router is not started")

	// ErrInvalidTransition is returned for lifecycle transitions out of order
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrNoRoutes is returned when a router that needs routes has none
	ErrNoRoutes = errors.New("router has no routes")

	// ErrTooManyRoutes is returned when a single-route router gets a second route
	ErrTooManyRoutes = errors.New("router accepts at most one route")

	// ErrNotAList is returned by list splitters when the payload is not a list
	ErrNotAList = errors.New("payload is not a list")

	// ErrNoMatchingRoute is returned when every route's filter rejects a part
	ErrNoMatchingRoute = errors.New("no route accepted the message part")

	// ErrAllDestinationsFailed is returned when no fallback destination succeeded
	ErrAllDestinationsFailed = errors.New("all destinations failed")

	// ErrNilPart is returned when a nil part is added to a SplitMessage
	ErrNilPart = errors.New("split part is nil")

	// ErrNilDestination is returned when a nil destination is added to a router or a SplitMessage
	ErrNilDestination = errors.New("destination is nil")

	// ErrDuplicateRouter is returned when a collection already holds a router with the same name
	ErrDuplicateRouter = errors.New("router already registered")
)

// RoutingError is a failed dispatch. It carries the router, the destination
// and the event being routed for diagnostics.
type RoutingError struct {
	Router      string
	Destination string
	Event       *message.Event
	Err         error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("router %s: %v", e.Router, e.Err)
}

func (e *RoutingError) Unwrap() error {
	return e.Err
}

// wrapRoutingError wraps err once. Errors that already carry a RoutingError
// are returned unchanged.
func wrapRoutingError(router string, d destination.Destination, event *message.Event, err error) error {
	var re *RoutingError
	if errors.As(err, &re) {
		return err
	}
	name, target := "", router
	if d != nil {
		name, target = d.Name(), d.Name()
	}
	return &RoutingError{
		Router:      router,
		Destination: name,
		Event:       event,
		Err:         apperrors.RoutingError(target, err),
	}
}
