// Package routing provides the outbound routing engine: routers that take one
// event, optionally split it into parts, send the parts to destinations and
// fold the responses back into a single result.
//
// # Overview
//
// Every router implements the Router interface and shares one base for
// configuration, lifecycle and dispatch. The variants differ only in how they
// produce parts and pick destinations:
//
//   - PassThrough forwards to its single route, or returns the event when it has none
//   - ListSplitter splits a list payload and spreads the parts over its routes
//   - Splitter sends parts to destinations chosen by a SplitFunc
//   - RecipientList sends a copy to every recipient resolved for the message
//   - Chaining threads one message through its routes in order
//   - Multicast sends the same message to every route, sequentially or in parallel
//   - ExceptionFallback tries routes in order until one succeeds
//   - TransformRouter rewrites the payload before forwarding it
//
// A Collection groups routers and hands each event to the first router that
// matches it, or to every matching router in match-all mode.
//
// # Correlation
//
// Parts produced by a split are stamped with a correlation: an id, the group
// size and a 1-based sequence number. The CorrelationMode decides what
// happens to the id:
//
//   - IF_NOT_SET keeps an existing id and generates one otherwise
//   - ALWAYS replaces the id
//   - NEVER leaves the correlation alone
//
// Group size and sequence number are written on every split unless the mode
// is NEVER. Generated ids come from the CorrelationIDMapper and get a "-N"
// suffix when sequential correlation is enabled.
//
// # Round robin
//
// List splitters pick a destination per part by asking a Counter for the next
// index and skipping routes whose filter rejects the part. Deterministic
// routers use a fresh counter per invocation, so the first part always goes to
// the first route. Non-deterministic routers share a process-wide
// AtomicCounter to spread load across router instances; tests inject their own
// with WithCounter.
//
// # Lifecycle
//
// Routers move through Uninitialised, Initialised, Started, Stopped and
// Disposed. Route fails with ErrNotStarted outside the Started state. Routes
// added later are initialised and started to match the router. The route list
// is copy-on-write, so a Route call in flight keeps the snapshot it began with.
//
// # Errors
//
// Configuration problems surface as config AppErrors from constructors and
// Initialise. Dispatch failures are wrapped once in a *RoutingError that names
// the router, the destination and the event. An empty split and an unmatched
// event are not errors: the first returns message.NoResult, the second returns
// the event unchanged.
//
// # Usage
//
//	splitter, err := routing.NewRoundRobin("orders", []destination.Destination{a, b},
//		routing.WithCorrelation(routing.CorrelationAlways),
//		routing.WithBatchSize(10),
//	)
//	if err != nil {
//		return err
//	}
//
//	collection := routing.NewCollection(routing.WithCatchAll(routing.LoggingCatchAll{}))
//	if err := collection.AddRouter(ctx, splitter); err != nil {
//		return err
//	}
//	if err := collection.Initialise(); err != nil {
//		return err
//	}
//	if err := collection.Start(ctx); err != nil {
//		return err
//	}
//
//	result, err := collection.Process(ctx, message.NewEvent(msg))
package routing
