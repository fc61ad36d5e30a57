package adapter

import (
	"errors"
	"sync"
)

// clientCache lazily creates one client per connection key and reuses it
// across endpoints that share the same target.
type clientCache[V any] struct {
	mu      sync.Mutex
	items   map[string]V
	closeFn func(V) error
}

func newClientCache[V any](closeFn func(V) error) *clientCache[V] {
	return &clientCache[V]{items: make(map[string]V), closeFn: closeFn}
}

func (c *clientCache[V]) get(key string, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[key]; ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.items[key] = v
	return v, nil
}

func (c *clientCache[V]) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, v := range c.items {
		if c.closeFn != nil {
			errs = append(errs, c.closeFn(v))
		}
		delete(c.items, key)
	}
	return errors.Join(errs...)
}
