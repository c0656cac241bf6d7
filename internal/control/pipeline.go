// Package control wires the pipeline's dependencies and runs its
// lifecycle: the work-queue consumer, the health server, and graceful
// shutdown.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/trandat/shipper/internal/checkpoint"
	"github.com/trandat/shipper/internal/core/config"
	"github.com/trandat/shipper/internal/deadletter"
	"github.com/trandat/shipper/internal/delivery"
	"github.com/trandat/shipper/internal/fanout"
	"github.com/trandat/shipper/internal/health"
	"github.com/trandat/shipper/internal/ingest"
	redisclient "github.com/trandat/shipper/internal/infra/redis"
	"github.com/trandat/shipper/internal/infra/storage"
	"github.com/trandat/shipper/internal/infra/storage/memory"
	"github.com/trandat/shipper/internal/infra/storage/postgres"
)

const popTimeout = 5 * time.Second

// Pipeline is the assembled delivery pipeline: one circuit breaker and
// delivery engine per process, the fan-out controller, checkpoint
// manager, and the queue consumer that re-enters the same delivery path
// for each work item.
type Pipeline struct {
	cfg *config.AppConfig

	redisClient  *redisclient.Client
	db           *postgres.DB
	workQueue    *redisclient.WorkQueue
	router       *ingest.Router
	checkpoints  *checkpoint.Manager
	healthServer *health.Server

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPipeline creates a Pipeline with all dependencies initialized.
// Redis is required (it backs both queues); Postgres is optional and
// falls back to in-memory checkpoints for local runs.
func NewPipeline(cfg *config.AppConfig) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg}

	redisClient, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}
	p.redisClient = redisClient
	p.workQueue = redisclient.NewWorkQueue(redisClient, cfg.Queues.WorkKey)
	dlq := redisclient.NewDeadLetterQueue(redisClient, cfg.Queues.DeadLetterKey)

	var checkpointRepo storage.CheckpointRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		p.db = db

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		checkpointRepo = postgres.NewCheckpointRepo(db)
		slog.Info("Using PostgreSQL checkpoint storage")
	} else {
		checkpointRepo = memory.NewCheckpointRepo()
		slog.Info("Using in-memory checkpoint storage")
	}
	p.checkpoints = checkpoint.NewManager(checkpointRepo)

	breaker := delivery.NewCircuitBreaker("telemetry", delivery.BreakerConfig{
		FailureThreshold: cfg.Delivery.FailureThreshold,
		RecoveryTimeout:  time.Duration(cfg.Delivery.RecoveryTimeoutSeconds) * time.Second,
	})
	sender := delivery.NewEndpoint(delivery.EndpointConfig{
		URL:        cfg.Endpoint.URL,
		Token:      cfg.Endpoint.Token,
		CustomerID: cfg.Endpoint.CustomerID,
		Timeout:    time.Duration(cfg.Endpoint.TimeoutSeconds) * time.Second,
	})
	sink := deadletter.NewSink(dlq, cfg.Endpoint.CustomerID, cfg.Queues.DeadLetterChunkSize)
	engine := delivery.NewEngine(delivery.EngineConfig{
		CustomerID: cfg.Endpoint.CustomerID,
		BatchSize:  cfg.Delivery.BatchSize,
		MaxRetries: cfg.Delivery.MaxRetries,
	}, sender, breaker, sink)

	fan := fanout.NewController(p.workQueue, cfg.FanOut.Threshold, cfg.FanOut.BatchSize)
	enricher := &ingest.Enricher{
		Environment:     cfg.Pipeline.Environment,
		PipelineVersion: cfg.Pipeline.Version,
		DataOwner:       cfg.Pipeline.DataOwner,
	}
	p.router = ingest.NewRouter(engine, fan, enricher)

	p.healthServer = health.NewServer(cfg.Server.Port, map[string]health.Check{
		"redis": func(ctx context.Context) error {
			_, err := p.workQueue.Length(ctx)
			return err
		},
		"database": func(ctx context.Context) error {
			if p.db == nil {
				return nil
			}
			return p.db.PingContext(ctx)
		},
	})

	return p, nil
}

// Router exposes the event router for direct source runs.
func (p *Pipeline) Router() *ingest.Router {
	return p.router
}

// Checkpoints exposes the checkpoint manager for paginated readers.
func (p *Pipeline) Checkpoints() *checkpoint.Manager {
	return p.checkpoints
}

// Start launches the health server and the work-queue consumer.
func (p *Pipeline) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.healthServer.Start(); err != nil {
			slog.Debug("Health server stopped", "error", err)
		}
	}()

	p.wg.Add(1)
	go p.consumeWorkQueue(ctx)

	slog.Info("Pipeline started", "port", p.cfg.Server.Port)
	return nil
}

// consumeWorkQueue pops work items and re-enters the delivery path per
// item. Items are independent; no ordering is guaranteed across them.
func (p *Pipeline) consumeWorkQueue(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := p.workQueue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Failed to pop work item", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if item == nil {
			continue
		}

		summary := p.router.HandleWorkItem(ctx, item)
		if summary.FailedRecords > 0 {
			slog.Warn("Work item finished with failures",
				"type", item.Type,
				"batch", item.BatchNumber,
				"failed", summary.FailedRecords,
			)
		}
	}
}

// Stop shuts down the consumer and the health server, then closes
// connections.
func (p *Pipeline) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	if err := p.healthServer.Stop(ctx); err != nil {
		slog.Warn("Failed to stop health server", "error", err)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if p.db != nil {
		_ = p.db.Close()
	}
	return p.redisClient.Close()
}
