package logging

import "time"

// Field is one key-value pair attached to a log entry
type Field struct {
	Key   string
	Value interface{}
}

// Keys shared by every component that logs about a routed message
const (
	KeyMessageID     = "message_id"
	KeyCorrelationID = "correlation_id"
	KeyRouter        = "router"
	KeyDestination   = "destination"
	KeyComponent     = "component"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates an "error" field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

func MessageID(id string) Field { return String(KeyMessageID, id) }

// CorrelationID is omitted by callers when the message has no correlation
func CorrelationID(id string) Field { return String(KeyCorrelationID, id) }

func Router(name string) Field { return String(KeyRouter, name) }

func Destination(name string) Field { return String(KeyDestination, name) }

func Component(name string) Field { return String(KeyComponent, name) }
