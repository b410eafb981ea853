// Package circuitbreaker implements the circuit breaker pattern for the
// request gateway.
//
// A circuit breaker prevents hammering a failing catalog node. It has three
// states:
//
//   - CLOSED: Normal operation, requests pass through
//   - OPEN: Node failing, requests blocked
//   - HALF-OPEN: Testing if the node recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	cb := registry.ForNode("optimusdb1")
//	if cb.Allow() {
//	    // Make request...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
