package stats

import (
	"sync"
	"time"
)

// Stats is thread-safe storage for dispatch counters, keyed by server.
type Stats[K comparable] struct {
	mutex      sync.RWMutex
	dispatches map[K]int64
	completed  map[K]int64
	failed     map[K]int64
	sidelined  map[K]int64
	startTime  time.Time
}

type Snapshot[K comparable] struct {
	TotalDispatches int64             `json:"total_dispatches"`
	Uptime          time.Duration     `json:"uptime"`
	Servers         map[K]ServerStats `json:"servers"`
}

type ServerStats struct {
	Dispatches int64   `json:"dispatches"`
	Completed  int64   `json:"completed"`
	Failed     int64   `json:"failed"`
	Sidelined  int64   `json:"sidelined"`
	Share      float64 `json:"share"`
}

func New[K comparable]() *Stats[K] {
	return &Stats[K]{
		dispatches: make(map[K]int64),
		completed:  make(map[K]int64),
		failed:     make(map[K]int64),
		sidelined:  make(map[K]int64),
		startTime:  time.Now(),
	}
}

func (s *Stats[K]) RecordDispatch(server K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.dispatches[server]++
}

func (s *Stats[K]) RecordCompletion(server K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.completed[server]++
}

func (s *Stats[K]) RecordFailure(server K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failed[server]++
}

func (s *Stats[K]) RecordSideline(server K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sidelined[server]++
}

// Snapshot returns a point-in-time copy of all counters, with each server's
// share of total dispatches.
func (s *Stats[K]) Snapshot() Snapshot[K] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snap := Snapshot[K]{
		Uptime:  time.Since(s.startTime),
		Servers: make(map[K]ServerStats),
	}

	// Collect every server seen by any counter
	servers := make(map[K]bool)
	for server := range s.dispatches {
		servers[server] = true
	}
	for server := range s.completed {
		servers[server] = true
	}
	for server := range s.failed {
		servers[server] = true
	}
	for server := range s.sidelined {
		servers[server] = true
	}

	for server := range servers {
		snap.TotalDispatches += s.dispatches[server]
	}

	for server := range servers {
		ss := ServerStats{
			Dispatches: s.dispatches[server],
			Completed:  s.completed[server],
			Failed:     s.failed[server],
			Sidelined:  s.sidelined[server],
		}
		if snap.TotalDispatches > 0 {
			ss.Share = float64(ss.Dispatches) / float64(snap.TotalDispatches)
		}
		snap.Servers[server] = ss
	}

	return snap
}
