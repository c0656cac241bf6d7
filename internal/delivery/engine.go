package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/metrics"
)

// DeadLetter persists undeliverable records. Write reports whether the
// publish succeeded; it must never panic or propagate errors, the sink
// is a best-effort last resort.
type DeadLetter interface {
	Write(ctx context.Context, records []domain.Record) bool
}

// EngineConfig defines batching and retry behavior.
type EngineConfig struct {
	CustomerID string
	BatchSize  int // flush threshold, default 1000
	MaxRetries int // retries after the initial attempt, default 3
}

// Engine accumulates records into batches and delivers each batch with
// circuit breaking, classified retries and dead-lettering. A batch is
// flushed in full or not at all; records are never dropped silently:
// every added record ends up delivered, in a FailedBatch, or buffered
// for the next flush.
//
// The engine is driven by a single logical sequence per invocation.
// Retries sleep synchronously, so a flush blocks the producer until it
// resolves. Worst-case cumulative backoff at defaults (2s+4s+8s plus
// rate-limit waits) stays well under a one-minute execution budget.
type Engine struct {
	cfg     EngineConfig
	sender  Sender
	breaker *CircuitBreaker
	sink    DeadLetter

	batch []domain.Record

	sleep func(ctx context.Context, d time.Duration)
}

// NewEngine creates a delivery engine. Zero config fields fall back to
// defaults (batch size 1000, 3 retries).
func NewEngine(cfg EngineConfig, sender Sender, breaker *CircuitBreaker, sink DeadLetter) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Engine{
		cfg:     cfg,
		sender:  sender,
		breaker: breaker,
		sink:    sink,
		sleep:   sleepCtx,
	}
}

// Add appends one record to the current batch and synchronously flushes
// once the batch reaches the configured size. The returned slice holds
// any batch that terminally failed during that flush.
func (e *Engine) Add(ctx context.Context, record domain.Record) []domain.FailedBatch {
	e.batch = append(e.batch, record)
	if len(e.batch) >= e.cfg.BatchSize {
		if fb := e.Flush(ctx); fb != nil {
			return []domain.FailedBatch{*fb}
		}
	}
	return nil
}

// AddAll adds each record via Add, then flushes any remainder below the
// threshold. It returns every batch that terminally failed.
func (e *Engine) AddAll(ctx context.Context, records []domain.Record) []domain.FailedBatch {
	var failed []domain.FailedBatch
	for _, r := range records {
		failed = append(failed, e.Add(ctx, r)...)
	}
	if fb := e.Flush(ctx); fb != nil {
		failed = append(failed, *fb)
	}
	return failed
}

// Pending returns the number of records buffered for the next flush.
func (e *Engine) Pending() int {
	return len(e.batch)
}

// Flush attempts delivery of the current batch. Transient failures are
// absorbed here; only a terminal failure surfaces, as a FailedBatch
// that has already been handed to the dead-letter sink. A nil return
// means the batch was delivered (or was empty).
func (e *Engine) Flush(ctx context.Context) *domain.FailedBatch {
	if len(e.batch) == 0 {
		return nil
	}

	slog.Info("Flushing batch", "records", len(e.batch))

	// Fail fast while the downstream is known degraded. This does not
	// consume a retry attempt.
	if !e.breaker.AllowRequest() {
		slog.Warn("Circuit breaker is open, skipping delivery", "records", len(e.batch))
		metrics.DeliveryAttemptsTotal.WithLabelValues("circuit_open").Inc()
		return e.fail(ctx, "circuit open")
	}

	var lastReason string
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		out := e.sender.Send(ctx, e.batch)
		metrics.DeliveryAttemptsTotal.WithLabelValues(out.Kind.String()).Inc()

		switch out.Kind {
		case OutcomeSuccess:
			slog.Info("Batch delivered", "records", len(e.batch), "attempt", attempt+1)
			e.breaker.RecordSuccess()
			metrics.RecordsDeliveredTotal.Add(float64(len(e.batch)))
			e.batch = nil
			return nil

		case OutcomeRateLimited:
			// The server named its own delay. Waiting does not count as
			// a breaker failure, but it still consumes an attempt slot
			// so a permanently throttled endpoint cannot loop forever.
			lastReason = out.Reason
			slog.Warn("Rate limited", "retry_after", out.RetryAfter, "attempt", attempt+1)
			if attempt == e.cfg.MaxRetries {
				break
			}
			e.sleep(ctx, out.RetryAfter)

		case OutcomeRetryable:
			lastReason = out.Reason
			e.breaker.RecordFailure()
			slog.Error("Retryable delivery failure", "reason", out.Reason, "attempt", attempt+1)
			if attempt == e.cfg.MaxRetries {
				break
			}
			e.sleep(ctx, backoff(attempt))

		case OutcomeNonRetryable:
			lastReason = out.Reason
			e.breaker.RecordFailure()
			slog.Error("Non-retryable delivery failure", "reason", out.Reason)
			return e.fail(ctx, lastReason)
		}
	}

	slog.Error("Batch failed after all attempts", "attempts", e.cfg.MaxRetries+1, "reason", lastReason)
	return e.fail(ctx, lastReason)
}

// fail converts the current batch into a FailedBatch, hands it to the
// dead-letter sink, and clears the batch.
func (e *Engine) fail(ctx context.Context, reason string) *domain.FailedBatch {
	fb := &domain.FailedBatch{
		ID:         uuid.NewString(),
		CustomerID: e.cfg.CustomerID,
		Records:    e.batch,
		Reason:     reason,
		FailedAt:   time.Now(),
	}
	label := "exhausted"
	if reason == "circuit open" {
		label = "circuit_open"
	}
	metrics.RecordsFailedTotal.WithLabelValues(label).Add(float64(len(fb.Records)))
	if !e.sink.Write(ctx, fb.Records) {
		slog.Warn("Dead-letter write failed, records retained only in the failed batch",
			"records", len(fb.Records))
	}
	e.batch = nil
	return fb
}

// backoff is 2^(attempt+1) seconds: 2s, 4s, 8s for the default budget.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt+1)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
