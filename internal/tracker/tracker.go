package tracker

import (
	"io"
	"log/slog"
	"math"
	"sync"
)

// Unlimited is the workload sentinel for "no bound". It is the value of
// CurrentMinWorkload while the tracker is empty, and the effective cap when
// no cap was configured.
const Unlimited = math.MaxInt

// Tracker keeps the last-known workload of a set of servers and answers
// "who is least loaded" without rescanning the whole set on every call.
// Servers whose workload ties the current minimum form a rotation ring;
// selections cycle through the ring round-robin.
//
// Workloads are expected to be non-negative. The tracker does not validate
// this; callers own the meaning of the numbers they feed in.
type Tracker[K comparable] struct {
	mutex       sync.Mutex
	workloads   map[K]int
	minRing     []K
	cursor      int
	currentMin  int
	total       int
	maxWorkload int
	log         *slog.Logger
}

// New creates an empty tracker. A maxWorkload <= 0 means no cap: servers stay
// selectable no matter how loaded they are. Otherwise a server whose workload
// exceeds maxWorkload is never returned by TryGetLeastLoaded, even when it
// holds the global minimum. A nil logger disables diagnostics.
func New[K comparable](maxWorkload int, log *slog.Logger) *Tracker[K] {
	if maxWorkload <= 0 {
		maxWorkload = Unlimited
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	return &Tracker[K]{
		workloads:   make(map[K]int),
		currentMin:  Unlimited,
		maxWorkload: maxWorkload,
		log:         log,
	}
}

// TryAdd registers a server with its initial workload.
// Returns false if the server is already tracked.
func (t *Tracker[K]) TryAdd(server K, workload int) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.workloads[server]; ok {
		return false
	}

	t.workloads[server] = workload
	t.total += workload
	t.shift(server, Unlimited, workload)

	t.log.Debug("server added",
		slog.Any("server", server),
		slog.Int("workload", workload),
		slog.Int("min", t.currentMin))

	return true
}

// TryRemove forgets a server. Returns false if the server is not tracked.
func (t *Tracker[K]) TryRemove(server K) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	workload, ok := t.workloads[server]
	if !ok {
		return false
	}

	delete(t.workloads, server)
	t.total -= workload

	if workload == t.currentMin {
		t.dropFromRing(server)
		if len(t.minRing) == 0 {
			t.rescan()
		}
	}

	t.log.Debug("server removed",
		slog.Any("server", server),
		slog.Int("workload", workload),
		slog.Int("min", t.currentMin))

	return true
}

// TryUpdate replaces a server's workload. Returns false if the server is not
// tracked. Updating to the stored value is a successful no-op.
func (t *Tracker[K]) TryUpdate(server K, workload int) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	old, ok := t.workloads[server]
	if !ok {
		return false
	}

	if old == workload {
		return true
	}

	t.workloads[server] = workload
	t.total += workload - old
	t.shift(server, old, workload)

	t.log.Debug("server updated",
		slog.Any("server", server),
		slog.Int("old", old),
		slog.Int("new", workload),
		slog.Int("min", t.currentMin))

	return true
}

// TryGetLeastLoaded returns the next server in the minimum-load rotation and
// its workload. The rotation cursor advances by one on every successful call,
// so servers tied at the minimum are handed out round-robin. Returns ok=false
// and workload -1 when no server is eligible: the tracker is empty, or every
// server sits above the cap.
func (t *Tracker[K]) TryGetLeastLoaded() (server K, workload int, ok bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if len(t.minRing) == 0 {
		return server, -1, false
	}

	// The ring is only populated while currentMin <= maxWorkload; re-checked
	// here in case that invariant is ever relaxed.
	if t.currentMin > t.maxWorkload {
		return server, -1, false
	}

	t.cursor = (t.cursor + 1) % len(t.minRing)
	return t.minRing[t.cursor], t.currentMin, true
}

// AverageWorkload returns the integer mean of all tracked workloads,
// 0 when the tracker is empty.
func (t *Tracker[K]) AverageWorkload() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if len(t.workloads) == 0 {
		return 0
	}

	return t.total / len(t.workloads)
}

// CurrentMinWorkload returns the minimum workload among tracked servers, or
// Unlimited when the tracker is empty.
func (t *Tracker[K]) CurrentMinWorkload() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.currentMin
}

// MinLoadSetSize returns how many servers are tied at the current minimum and
// under the cap.
func (t *Tracker[K]) MinLoadSetSize() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.minRing)
}

// Workload returns a server's current workload, ok=false if it is not tracked.
func (t *Tracker[K]) Workload(server K) (int, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	workload, ok := t.workloads[server]
	return workload, ok
}

// Len returns the number of tracked servers.
func (t *Tracker[K]) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.workloads)
}

// shift repairs the minimum and its rotation ring after server moved from
// oldWorkload to newWorkload. Callers pass oldWorkload = Unlimited for a
// fresh add. Runs O(1) unless the last ring member leaves the minimum, which
// forces a full rescan. Caller holds the lock.
func (t *Tracker[K]) shift(server K, oldWorkload, newWorkload int) {
	switch {
	case newWorkload == oldWorkload:
		return

	case newWorkload < t.currentMin:
		// New sole minimum.
		t.currentMin = newWorkload
		t.minRing = t.minRing[:0]
		t.cursor = 0
		if newWorkload <= t.maxWorkload {
			t.minRing = append(t.minRing, server)
		}

	case newWorkload == t.currentMin:
		// Ties the minimum; joins the rotation if under the cap.
		if t.currentMin <= t.maxWorkload {
			t.minRing = append(t.minRing, server)
		}

	default:
		if oldWorkload != t.currentMin {
			return
		}
		// Left the minimum tier.
		t.dropFromRing(server)
		if len(t.minRing) == 0 {
			t.rescan()
		}
	}
}

// dropFromRing removes server from the rotation ring, preserving the order of
// the remaining members, and keeps the cursor in range. Caller holds the lock.
func (t *Tracker[K]) dropFromRing(server K) {
	for i, s := range t.minRing {
		if s == server {
			t.minRing = append(t.minRing[:i], t.minRing[i+1:]...)
			break
		}
	}

	if t.cursor >= len(t.minRing) {
		t.cursor = 0
	}
}

// rescan recomputes the minimum and rebuilds the rotation ring from the full
// entry map. This is the O(n) fallback for when the last server at the old
// minimum is gone. Caller holds the lock.
func (t *Tracker[K]) rescan() {
	t.currentMin = Unlimited
	t.minRing = t.minRing[:0]
	t.cursor = 0

	for _, workload := range t.workloads {
		if workload < t.currentMin {
			t.currentMin = workload
		}
	}

	if t.currentMin > t.maxWorkload {
		return
	}

	for server, workload := range t.workloads {
		if workload == t.currentMin {
			t.minRing = append(t.minRing, server)
		}
	}
}
