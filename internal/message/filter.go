package message

// Filter decides whether a message is accepted
type Filter interface {
	Accept(msg *Message) bool
}

// FilterFunc adapts a function to Filter
type FilterFunc func(msg *Message) bool

// Accept calls f
func (f FilterFunc) Accept(msg *Message) bool { return f(msg) }

// AcceptAll accepts every message
var AcceptAll Filter = FilterFunc(func(*Message) bool { return true })
