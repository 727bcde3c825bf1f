package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/dkarras/load-tracker/internal/circuitbreaker"
	"github.com/dkarras/load-tracker/internal/tracker"
)

// Dispatcher hands tasks to the least-loaded registered server. Each acquired
// task charges the chosen server a fixed cost in the tracker; releasing the
// task refunds it. Servers that keep failing are sidelined through their
// circuit breaker and re-enter rotation once the breaker allows traffic again.
type Dispatcher[K comparable] struct {
	mutex     sync.Mutex
	tracker   *tracker.Tracker[K]
	breakers  *circuitbreaker.Registry[K]
	sidelined map[K]int // workload remembered while out of rotation
	taskCost  int
	log       *slog.Logger
}

// New creates a dispatcher over the given tracker and breaker registry.
// A taskCost <= 0 defaults to 1. A nil logger disables diagnostics.
func New[K comparable](
	tr *tracker.Tracker[K],
	breakers *circuitbreaker.Registry[K],
	taskCost int,
	log *slog.Logger,
) *Dispatcher[K] {
	if taskCost <= 0 {
		taskCost = 1
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	return &Dispatcher[K]{
		tracker:   tr,
		breakers:  breakers,
		sidelined: make(map[K]int),
		taskCost:  taskCost,
		log:       log,
	}
}

// Register adds a server with its starting workload.
// Returns false if the server is already known, sidelined or not.
func (d *Dispatcher[K]) Register(server K, workload int) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, ok := d.sidelined[server]; ok {
		return false
	}

	return d.tracker.TryAdd(server, workload)
}

// Deregister removes a server entirely, dropping its breaker state.
// Returns false if the server is not known.
func (d *Dispatcher[K]) Deregister(server K) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, ok := d.sidelined[server]; ok {
		delete(d.sidelined, server)
		d.breakers.Remove(server)
		return true
	}

	if !d.tracker.TryRemove(server) {
		return false
	}

	d.breakers.Remove(server)
	return true
}

// Acquire picks the least-loaded eligible server and charges it one task cost.
// Sidelined servers whose breakers have cooled off rejoin rotation first.
func (d *Dispatcher[K]) Acquire() (K, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.revive()

	server, workload, ok := d.tracker.TryGetLeastLoaded()
	if !ok {
		var zero K
		return zero, fmt.Errorf("no eligible servers")
	}

	d.tracker.TryUpdate(server, workload+d.taskCost)
	return server, nil
}

// Release refunds one task cost to a server. Unknown servers are ignored;
// a sidelined server's remembered workload is adjusted instead, so it
// returns to rotation with an accurate number.
func (d *Dispatcher[K]) Release(server K) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if remembered, ok := d.sidelined[server]; ok {
		if remembered >= d.taskCost {
			d.sidelined[server] = remembered - d.taskCost
		} else {
			d.sidelined[server] = 0
		}
		return
	}

	workload, ok := d.tracker.Workload(server)
	if !ok {
		return
	}

	if workload >= d.taskCost {
		d.tracker.TryUpdate(server, workload-d.taskCost)
	} else {
		d.tracker.TryUpdate(server, 0)
	}
}

// Report feeds a task outcome to the server's circuit breaker. A failure that
// trips the breaker pulls the server out of rotation; the return value says
// whether that happened on this call.
func (d *Dispatcher[K]) Report(server K, success bool) (sidelinedNow bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	cb := d.breakers.GetBreaker(server)
	if success {
		cb.RecordSuccess()
		return false
	}

	cb.RecordFailure()
	if cb.State() != circuitbreaker.StateOpen {
		return false
	}

	if _, ok := d.sidelined[server]; ok {
		return false
	}

	workload, ok := d.tracker.Workload(server)
	if !ok {
		return false
	}

	d.tracker.TryRemove(server)
	d.sidelined[server] = workload

	d.log.Warn("server sidelined",
		slog.Any("server", server),
		slog.Int("workload", workload))

	return true
}

// SidelinedCount returns how many servers are currently out of rotation.
func (d *Dispatcher[K]) SidelinedCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.sidelined)
}

// revive re-adds sidelined servers whose breakers let traffic through again.
// Caller holds the lock.
func (d *Dispatcher[K]) revive() {
	for server, workload := range d.sidelined {
		if !d.breakers.GetBreaker(server).Allow() {
			continue
		}

		d.tracker.TryAdd(server, workload)
		delete(d.sidelined, server)

		d.log.Info("server revived",
			slog.Any("server", server),
			slog.Int("workload", workload))
	}
}
