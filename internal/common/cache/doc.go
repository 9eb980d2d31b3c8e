// Package cache provides a small key/value cache abstraction backed by
// patrickmn/go-cache. Routers use it to memoise resolved recipient
// destinations; GetOrSet gives first-writer-wins semantics when several
// invocations resolve the same recipient at once.
package cache
