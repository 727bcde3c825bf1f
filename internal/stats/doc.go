// Package stats collects dispatch statistics per server.
//
// It records how often each server was selected, how many of its tasks
// completed or failed, and how often it was sidelined. Counters live behind a
// sync.RWMutex; the Collector adds a channel-based event pipeline on top so
// the dispatch path can report events without blocking, with graceful
// shutdown draining any buffered events.
//
// Example usage:
//
//	collector := stats.NewCollector[string](1000, logger)
//	collector.Start(ctx)
//
//	collector.EventChannel() <- stats.Event[string]{
//		Type:   stats.EventTaskDispatched,
//		Server: "worker-1",
//	}
//
//	snapshot := collector.Snapshot()
package stats
