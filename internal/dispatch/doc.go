// Package dispatch layers task accounting and failure handling on top of the
// workload tracker: acquire charges the least-loaded server, release refunds
// it, and repeated failures sideline a server via its circuit breaker until
// the breaker cools off.
package dispatch
