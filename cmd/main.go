package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"github.com/dkarras/load-tracker/config"
	"github.com/dkarras/load-tracker/internal/circuitbreaker"
	"github.com/dkarras/load-tracker/internal/dispatch"
	"github.com/dkarras/load-tracker/internal/stats"
	"github.com/dkarras/load-tracker/internal/tracker"
	"github.com/dkarras/load-tracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Logging.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tr := tracker.New[string](cfg.Tracker.MaxWorkload, log)
	breakers := circuitbreaker.NewRegistry[string](cfg.Dispatch.FailureThreshold, cfg.ResetTimeout())
	dispatcher := dispatch.New(tr, breakers, cfg.Dispatch.TaskCost, log)

	if err := registerServers(dispatcher, cfg.Servers, log); err != nil {
		log.Error("Failed to register servers", slog.Any("err", err))
		os.Exit(1)
	}

	collector := stats.NewCollector[string](1024, log)
	collector.Start(ctx)

	params := simParams{
		workers:   envInt("SIM_WORKERS", 8),
		tasks:     envInt("SIM_TASKS", 1000),
		rps:       envInt("SIM_RATE", 500),
		failEvery: envInt("SIM_FAIL_EVERY", 0),
	}

	log.Info("Starting simulation",
		slog.Int("servers", tr.Len()),
		slog.Int("workers", params.workers),
		slog.Int("tasks", params.tasks))

	runSimulation(ctx, dispatcher, collector, log, params)

	// Stop the collector and give it a moment to drain buffered events.
	cancel()
	time.Sleep(50 * time.Millisecond)

	report(collector.Snapshot(), tr, log)
}

func registerServers(dispatcher *dispatch.Dispatcher[string], servers []config.ServerConfig, log *slog.Logger) error {
	if len(servers) == 0 {
		return os.ErrInvalid
	}

	for _, server := range servers {
		if !dispatcher.Register(server.Name, server.Workload) {
			log.Warn("Duplicate server in config, skipping",
				slog.String("server", server.Name))
			continue
		}
		log.Info("Registered server",
			slog.String("server", server.Name),
			slog.Int("workload", server.Workload))
	}

	return nil
}

type simParams struct {
	workers   int
	tasks     int
	rps       int
	failEvery int // every Nth task fails; 0 disables failures
}

// runSimulation drives the dispatcher from concurrent workers at a bounded
// rate: acquire the least-loaded server, pretend to run the task, release,
// and report the outcome.
func runSimulation(
	ctx context.Context,
	dispatcher *dispatch.Dispatcher[string],
	collector *stats.Collector[string],
	log *slog.Logger,
	params simParams,
) {
	limiter := rate.NewLimiter(rate.Limit(params.rps), params.workers)
	events := collector.EventChannel()

	var taskSeq atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < params.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				seq := taskSeq.Add(1)
				if seq > int64(params.tasks) {
					return
				}

				if err := limiter.Wait(ctx); err != nil {
					return
				}

				taskID := uuid.NewString()
				server, err := dispatcher.Acquire()
				if err != nil {
					log.Debug("No server for task",
						slog.String("task", taskID),
						slog.Any("err", err))
					continue
				}

				events <- stats.Event[string]{
					Type:      stats.EventTaskDispatched,
					Timestamp: time.Now(),
					Server:    server,
				}

				success := params.failEvery == 0 || seq%int64(params.failEvery) != 0
				dispatcher.Release(server)

				if sidelined := dispatcher.Report(server, success); sidelined {
					events <- stats.Event[string]{
						Type:      stats.EventServerSidelined,
						Timestamp: time.Now(),
						Server:    server,
					}
				}

				outcome := stats.EventTaskCompleted
				if !success {
					outcome = stats.EventTaskFailed
				}
				events <- stats.Event[string]{
					Type:      outcome,
					Timestamp: time.Now(),
					Server:    server,
				}

				log.Debug("Task finished",
					slog.String("task", taskID),
					slog.String("server", server),
					slog.Bool("success", success))
			}
		}()
	}

	wg.Wait()
}

func report(snap stats.Snapshot[string], tr *tracker.Tracker[string], log *slog.Logger) {
	log.Info("Simulation finished",
		slog.Int64("dispatches", snap.TotalDispatches),
		slog.Duration("uptime", snap.Uptime),
		slog.Int("min_workload", tr.CurrentMinWorkload()),
		slog.Int("avg_workload", tr.AverageWorkload()))

	for server, ss := range snap.Servers {
		log.Info("Server stats",
			slog.String("server", server),
			slog.Int64("dispatches", ss.Dispatches),
			slog.Int64("completed", ss.Completed),
			slog.Int64("failed", ss.Failed),
			slog.Int64("sidelined", ss.Sidelined),
			slog.Float64("share", ss.Share))
	}
}

// envInt reads an integer override from the environment, falling back to def
// when unset or unparsable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}
