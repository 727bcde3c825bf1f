// Package circuitbreaker implements the circuit breaker pattern for server
// sidelining.
//
// A circuit breaker keeps a repeatedly failing server out of rotation for a
// while instead of letting it keep absorbing tasks. It has three states:
//
//   - CLOSED: Normal operation, tasks pass through
//   - OPEN: Server failing, tasks blocked
//   - HALF-OPEN: Testing if the server recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry[string](5, 30*time.Second)
//	cb := registry.GetBreaker("worker-1")
//	if cb.Allow() {
//	    // Run the task...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
