package ingest

import (
	"context"
	"log/slog"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/fanout"
	"github.com/trandat/shipper/internal/metrics"
)

// BatchAdder is the delivery surface the router drives: add records,
// flushing at the batch threshold and once more for the remainder.
type BatchAdder interface {
	AddAll(ctx context.Context, records []domain.Record) []domain.FailedBatch
}

// Summary reports the outcome of one pipeline invocation. Counts are
// always populated; data is never dropped without a count.
type Summary struct {
	TotalRecords     int                  `json:"total_records"`
	ProcessedRecords int                  `json:"processed_records"`
	FailedRecords    int                  `json:"failed_records"`
	Distributed      bool                 `json:"distributed,omitempty"`
	Batches          int                  `json:"batches,omitempty"`
	FailedBatches    []domain.FailedBatch `json:"-"`
}

// Router drives the core pipeline for each triggering event: validate
// records, deliver inline, or redistribute oversized workloads through
// the fan-out controller.
type Router struct {
	engine   BatchAdder
	fan      *fanout.Controller
	enricher *Enricher
}

// NewRouter creates a router. A nil fan-out controller disables
// redistribution, everything is delivered inline; a nil enricher skips
// correlation stamping.
func NewRouter(engine BatchAdder, fan *fanout.Controller, enricher *Enricher) *Router {
	return &Router{engine: engine, fan: fan, enricher: enricher}
}

// HandleWorkItem processes one work-queue message: validate its records
// and deliver them through the batching engine. Work items may be
// redelivered; validation is pure per record, so duplicates only
// produce duplicate output.
func (r *Router) HandleWorkItem(ctx context.Context, item *domain.WorkItem) Summary {
	slog.Info("Processing work item",
		"type", item.Type,
		"records", len(item.Records),
		"batch", item.BatchNumber,
		"total_batches", item.TotalBatches,
	)
	return r.deliver(ctx, item.Records)
}

// RunSource processes one direct source run. Workloads above the
// fan-out threshold are redistributed as independent work items and
// delivered later by queue consumers; everything else is delivered
// inline.
func (r *Router) RunSource(ctx context.Context, workType string, records []domain.Record) Summary {
	if r.fan != nil && r.fan.ShouldFanOut(len(records)) {
		slog.Info("Using fan-out for large workload", "type", workType, "records", len(records))
		batches := r.fan.BatchCount(len(records))
		if err := r.fan.FanOut(ctx, workType, records); err != nil {
			slog.Error("Fan-out reported publish failures", "type", workType, "error", err)
		}
		return Summary{
			TotalRecords: len(records),
			Distributed:  true,
			Batches:      batches,
		}
	}
	return r.deliver(ctx, records)
}

func (r *Router) deliver(ctx context.Context, records []domain.Record) Summary {
	s := Summary{TotalRecords: len(records)}

	valid := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if err := Validate(record); err != nil {
			slog.Warn("Validation error", "error", err)
			metrics.ValidationFailuresTotal.WithLabelValues(string(record.DataType())).Inc()
			s.FailedRecords++
			continue
		}
		valid = append(valid, record)
	}

	if r.enricher != nil {
		valid = r.enricher.Enrich(valid)
	}

	s.FailedBatches = r.engine.AddAll(ctx, valid)
	for _, fb := range s.FailedBatches {
		s.FailedRecords += len(fb.Records)
	}
	s.ProcessedRecords = s.TotalRecords - s.FailedRecords

	slog.Info("Invocation finished",
		"total", s.TotalRecords,
		"processed", s.ProcessedRecords,
		"failed", s.FailedRecords,
	)
	return s
}
