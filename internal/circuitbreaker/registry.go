package circuitbreaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per cluster node, keyed by node name.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	timeout   time.Duration
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
	}
}

// ForNode returns the breaker guarding the named node, creating it on first
// use.
func (r *Registry) ForNode(name string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.timeout)
	r.breakers[name] = cb
	return cb
}

// Prune drops breakers for nodes that are no longer part of the topology,
// so a re-detection does not leak state for nodes that went away.
func (r *Registry) Prune(active []string) {
	keep := make(map[string]bool, len(active))
	for _, name := range active {
		keep[name] = true
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	for name := range r.breakers {
		if !keep[name] {
			delete(r.breakers, name)
		}
	}
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}
