package dbus

import (
	"errors"
	"fmt"
	"sync"
)

// cache is a pull-through cache of values derived from reflected
// types.
type cache[K, V any] struct {
	m sync.Map
}

var errNotFound = errors.New("key not found in cache")
var errRecursion = errors.New("recursive cache lookup")

// get returns the value previously stored for k, or errNotFound if k
// has never been looked up before. A lookup in flight for k on
// another goroutine reports errRecursion, since every caller in this
// package uses get to break cycles in self-referential Go types.
func (c *cache[K, V]) get(k K) (ret V, err error) {
	ent, loaded := c.m.LoadOrStore(k, errRecursion)
	if !loaded {
		var zero V
		return zero, errNotFound
	}
	if e, ok := ent.(error); ok {
		var zero V
		return zero, e
	}
	if v, ok := ent.(V); ok {
		return v, nil
	}
	panic(fmt.Errorf("unknown value %v (%T) stored in cache", ent, ent))
}

func (c *cache[K, V]) set(k K, v V) {
	c.m.Store(k, v)
}

func (c *cache[K, V]) setErr(k K, err error) {
	c.m.Store(k, err)
}

// GetOrBuild returns the cached value for k, calling build to
// construct and cache it (or its error, so a type that fails once
// fails the same way on every later lookup) the first time k is seen.
func (c *cache[K, V]) GetOrBuild(k K, build func() (V, error)) (V, error) {
	if v, err := c.get(k); err == nil {
		return v, nil
	} else if !errors.Is(err, errNotFound) {
		var zero V
		return zero, err
	}
	v, err := build()
	if err != nil {
		c.setErr(k, err)
		var zero V
		return zero, err
	}
	c.set(k, v)
	return v, nil
}
