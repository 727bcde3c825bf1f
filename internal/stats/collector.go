package stats

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventTaskDispatched  EventType = "task_dispatched"
	EventTaskCompleted   EventType = "task_completed"
	EventTaskFailed      EventType = "task_failed"
	EventServerSidelined EventType = "server_sidelined"
)

type Event[K comparable] struct {
	Type      EventType
	Timestamp time.Time
	Server    K
}

// Collector consumes dispatch events off a buffered channel so that callers
// on the dispatch path never block on stats bookkeeping.
type Collector[K comparable] struct {
	eventCh chan Event[K]
	stats   *Stats[K]
	logger  *slog.Logger
}

func NewCollector[K comparable](bufferSize int, logger *slog.Logger) *Collector[K] {
	return &Collector[K]{
		eventCh: make(chan Event[K], bufferSize),
		stats:   New[K](),
		logger:  logger,
	}
}

func (c *Collector[K]) EventChannel() chan<- Event[K] {
	return c.eventCh
}

func (c *Collector[K]) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector[K]) run(ctx context.Context) {
	c.logger.Info("Stats collector started")
	defer c.logger.Info("Stats collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector[K]) processEvent(event Event[K]) {
	switch event.Type {
	case EventTaskDispatched:
		c.stats.RecordDispatch(event.Server)
	case EventTaskCompleted:
		c.stats.RecordCompletion(event.Server)
	case EventTaskFailed:
		c.stats.RecordFailure(event.Server)
	case EventServerSidelined:
		c.stats.RecordSideline(event.Server)
	}
}

func (c *Collector[K]) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector[K]) Snapshot() Snapshot[K] {
	return c.stats.Snapshot()
}
