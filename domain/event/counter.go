package event

import "sync"

// Counter keeps a running total per event type.
type Counter struct {
	mu     sync.RWMutex
	totals map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{totals: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals[t]++
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totals[t]
}

func (c *Counter) Snapshot() map[Type]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Type]uint64, len(c.totals))
	for k, v := range c.totals {
		out[k] = v
	}
	return out
}
