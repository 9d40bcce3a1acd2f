// Package optimistic tracks local mutations that have been sent to a server
// but not yet confirmed by a subsequent read. A key stays marked until the
// server's state agrees with the local write, so polled snapshots never
// silently revert an unacknowledged mutation.
package optimistic

import "sync"

// Pending is a concurrency-safe set of keys with an unconfirmed write in
// flight.
type Pending[K comparable] struct {
	mu   sync.Mutex
	keys map[K]struct{}
}

// NewPending builds an empty pending set.
func NewPending[K comparable]() *Pending[K] {
	return &Pending[K]{keys: make(map[K]struct{})}
}

// Mark records an unconfirmed write for the key.
func (p *Pending[K]) Mark(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[key] = struct{}{}
}

// Unmark clears the key, either because the server confirmed the write or
// because the write failed and was rolled back.
func (p *Pending[K]) Unmark(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
}

// Contains reports whether the key has an unconfirmed write.
func (p *Pending[K]) Contains(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.keys[key]
	return ok
}

// Len returns the number of unconfirmed writes.
func (p *Pending[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Keys returns a snapshot of the keys with unconfirmed writes.
func (p *Pending[K]) Keys() []K {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]K, 0, len(p.keys))
	for key := range p.keys {
		keys = append(keys, key)
	}
	return keys
}
