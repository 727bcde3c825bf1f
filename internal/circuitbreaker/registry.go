package circuitbreaker

import (
	"sync"
	"time"
)

// Registry holds one breaker per server, created lazily with a shared
// threshold and reset timeout. Server identity is any comparable key.
type Registry[K comparable] struct {
	mutex     sync.RWMutex
	breakers  map[K]*CircuitBreaker
	threshold int
	timeout   time.Duration
}

func NewRegistry[K comparable](threshold int, timeout time.Duration) *Registry[K] {
	return &Registry[K]{
		breakers:  make(map[K]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
	}
}

// GetBreaker returns the breaker for server, creating it on first use.
func (r *Registry[K]) GetBreaker(server K) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[server]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[server]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.timeout)
	r.breakers[server] = cb
	return cb
}

// Remove drops the breaker for a deregistered server so the map does not
// grow with servers that will never return.
func (r *Registry[K]) Remove(server K) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.breakers, server)
}

func (r *Registry[K]) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[K]*CircuitBreaker)
}

// Stats returns the current state of every known breaker.
func (r *Registry[K]) Stats() map[K]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[K]State, len(r.breakers))
	for server, cb := range r.breakers {
		stats[server] = cb.State()
	}
	return stats
}
