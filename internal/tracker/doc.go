// Package tracker implements a concurrent least-workload tracker for a
// dynamic set of servers. It maintains the set of servers tied at the lowest
// workload incrementally, so the common add/update/remove path is O(1) and a
// full rescan only happens when the minimum tier empties out. Selection among
// tied servers is round-robin.
package tracker
