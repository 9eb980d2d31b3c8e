// Package definitions loads routing definition files and builds a live
// routing.Collection from them.
//
// A definition names every destination once and lets routers refer to them
// by name:
//
//	{
//	  "match_all": false,
//	  "destinations": [
//	    {"name": "orders-api", "type": "http", "config": {"url": "https://orders.internal/ingest"}},
//	    {"name": "orders-stream", "type": "redis", "config": {"stream": "orders"}, "async_only": true}
//	  ],
//	  "routers": [
//	    {"name": "orders", "type": "round_robin", "routes": ["orders-api", "orders-stream"],
//	     "filter": "props.kind == 'order'", "options": {"correlation": "ALWAYS"}}
//	  ],
//	  "catch_all": {"destination": "orders-api"}
//	}
package definitions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"outbound-router/internal/common/errors"
	"outbound-router/internal/common/validation"
	"outbound-router/internal/destination"
)

// Router types
const (
	TypePassThrough        = "pass_through"
	TypeSplitter           = "splitter"
	TypeRoundRobin         = "round_robin"
	TypeExpressionSplitter = "expression_splitter"
	TypeRecipientList      = "recipient_list"
	TypeChaining           = "chaining"
	TypeMulticast          = "multicast"
	TypeScatterGather      = "scatter_gather"
	TypeExceptionFallback  = "exception_fallback"
	TypeTransform          = "transform"
)

// Destination types not backed by a broker
const (
	TypeLog        = "log"
	TypeHTTP       = "http"
	TypeAggregator = "aggregator"
)

// Duration decodes from a Go duration string ("5s") or a number of
// milliseconds
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if s, err := strconv.Unquote(string(data)); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns d as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Definition is the root of a routing definition file
type Definition struct {
	// MatchAll overrides the configured collection behaviour when set
	MatchAll     *bool            `json:"match_all"`
	Destinations []DestinationDef `json:"destinations" validate:"dive"`
	Routers      []RouterDef      `json:"routers" validate:"required,min=1,dive"`
	CatchAll     *CatchAllDef     `json:"catch_all"`
}

// DestinationDef declares one named destination
type DestinationDef struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required"`
	// Config is decoded by the destination type: HTTPConfig for http, the
	// broker's config for broker types, AggregatorDef for aggregators
	Config json.RawMessage `json:"config"`
	// Publish selects the topic and routing key for broker types
	Publish destination.BrokerOptions `json:"publish"`

	Filter         string             `json:"filter"`
	CircuitBreaker *CircuitBreakerDef `json:"circuit_breaker"`
	RateLimit      *RateLimitDef      `json:"rate_limit"`
	AsyncOnly      bool               `json:"async_only"`
}

// CircuitBreakerDef guards a destination with a circuit breaker
type CircuitBreakerDef struct {
	MaxFailures           int      `json:"max_failures" validate:"gte=0"`
	Timeout               Duration `json:"timeout"`
	MaxConcurrentRequests int      `json:"max_concurrent_requests" validate:"gte=0"`
}

// RateLimitDef throttles sends to a destination
type RateLimitDef struct {
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gt=0"`
	Burst             int     `json:"burst" validate:"gte=0"`
}

// AggregatorDef configures an aggregating destination that reassembles
// split groups before forwarding them to Target
type AggregatorDef struct {
	Target             string   `json:"target" validate:"required"`
	Timeout            Duration `json:"timeout"`
	FailOnTimeout      bool     `json:"fail_on_timeout"`
	MaxProcessedGroups int      `json:"max_processed_groups" validate:"gte=0"`
}

// RouterDef declares one router. Which of the source fields apply depends
// on Type.
type RouterDef struct {
	Name   string   `json:"name" validate:"required"`
	Type   string   `json:"type" validate:"required,oneof=pass_through splitter round_robin expression_splitter recipient_list chaining multicast scatter_gather exception_fallback transform"`
	Routes []string `json:"routes"`
	// Filter is a boolean expression deciding whether the router matches
	Filter string `json:"filter"`

	// Expression is the split expression for expression_splitter and the
	// recipient expression for recipient lists. For transform it is the
	// payload expression.
	Expression string `json:"expression"`
	// Recipients is a static recipient list
	Recipients []string `json:"recipients"`
	// RecipientProperty names the message property listing recipients
	RecipientProperty string `json:"recipient_property"`
	// Script is the JavaScript body of a transform router
	Script string `json:"script"`

	Options RouterOptions `json:"options"`
}

// RouterOptions maps onto routing.Option values. Unset pointers keep the
// configured defaults.
type RouterOptions struct {
	Correlation             string    `json:"correlation" validate:"correlation_mode"`
	SequentialCorrelation   bool      `json:"sequential_correlation"`
	CorrelationIDExpression string    `json:"correlation_id_expression"`
	BatchSize               int       `json:"batch_size" validate:"gte=0"`
	CounterVariable         string    `json:"counter_variable"`
	RootMessageVariable     string    `json:"root_message_variable"`
	ReplyTo                 string    `json:"reply_to"`
	Synchronous             *bool     `json:"synchronous"`
	FailIfNoMatch           *bool     `json:"fail_if_no_match"`
	Deterministic           *bool     `json:"deterministic"`
	DisableRoundRobin       bool      `json:"disable_round_robin"`
	StopOnError             bool      `json:"stop_on_error"`
	MaxConcurrency          int       `json:"max_concurrency" validate:"gte=0"`
	RecipientCacheTTL       *Duration `json:"recipient_cache_ttl"`
	ScriptTimeout           Duration  `json:"script_timeout"`
	DisposeRoutes           bool      `json:"dispose_routes"`
}

// CatchAllDef handles messages no router matched. Without a destination
// unmatched messages are logged and discarded.
type CatchAllDef struct {
	Destination string `json:"destination"`
}

// Load reads and parses the definition file at path
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigErrorf("failed to read routing definitions %s", path).WithCause(err)
	}
	return Parse(data)
}

// Parse decodes and validates a definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, errors.ConfigError("invalid routing definitions").WithCause(err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks struct tags and that names are unique. Route references
// are resolved by the Builder, which may know destinations the file does
// not declare.
func (d *Definition) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return errors.ConfigError("invalid routing definitions").WithCause(err)
	}

	destinations := make(map[string]bool, len(d.Destinations))
	for _, dest := range d.Destinations {
		if destinations[dest.Name] {
			return errors.ConfigErrorf("destination %q declared twice", dest.Name)
		}
		destinations[dest.Name] = true
	}

	routers := make(map[string]bool, len(d.Routers))
	for _, r := range d.Routers {
		if routers[r.Name] {
			return errors.ConfigErrorf("router %q declared twice", r.Name)
		}
		routers[r.Name] = true
	}
	return nil
}
