package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trandat/shipper/internal/checkpoint"
	"github.com/trandat/shipper/internal/core/domain"
)

// ErrRateLimited marks an upstream rate-limit rejection. Fetch retries
// these with exponential backoff before giving up.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// Page is one page of records from a paginated upstream source.
type Page struct {
	Records []domain.Record
	// Cursor is the continuation the next fetch starts from; "" when
	// this is the last page.
	Cursor string
	// LastID is the natural key of the final record on the page.
	LastID string
}

// PageFetcher reads one page of an upstream source starting at cursor.
// Upstream readers (CRM queries, cost-report fetches) implement this;
// the pipeline treats them as black boxes.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

const fetchMaxRetries = 3

// fetchSleep is swapped out in tests.
var fetchSleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Fetch drains a paginated source into a record slice, checkpointing
// after every page so an interrupted run can resume from its cursor.
// Rate-limit rejections back off 5s, 10s, 20s before failing the run.
func Fetch(ctx context.Context, fetcher PageFetcher, stream string, cps *checkpoint.Manager) ([]domain.Record, error) {
	cursor := ""
	processed := 0

	if cp, err := cps.Resume(ctx, stream); err != nil {
		slog.Warn("Failed to load checkpoint, starting from the beginning", "stream", stream, "error", err)
	} else if cp != nil {
		cursor = cp.Cursor
		processed = cp.ProcessedCount
		slog.Info("Resuming from checkpoint",
			"stream", stream,
			"last_id", cp.LastID,
			"processed", cp.ProcessedCount,
		)
	}

	var records []domain.Record
	for {
		page, err := fetchWithRateLimitRetry(ctx, fetcher, cursor)
		if err != nil {
			return records, fmt.Errorf("fetch page for %s: %w", stream, err)
		}
		if len(page.Records) == 0 {
			break
		}

		records = append(records, page.Records...)
		processed += len(page.Records)

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor

		// Best effort: a lost checkpoint only costs a re-fetch.
		cps.Save(ctx, stream, cursor, page.LastID, processed)
	}

	slog.Info("Retrieved records from source", "stream", stream, "records", len(records))
	return records, nil
}

func fetchWithRateLimitRetry(ctx context.Context, fetcher PageFetcher, cursor string) (Page, error) {
	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		page, err := fetcher.FetchPage(ctx, cursor)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return Page{}, err
		}
		lastErr = err
		if attempt == fetchMaxRetries-1 {
			break
		}
		wait := time.Duration(1<<attempt) * 5 * time.Second
		slog.Warn("Source rate limit exceeded, backing off",
			"attempt", attempt+1,
			"wait", wait,
		)
		if err := fetchSleep(ctx, wait); err != nil {
			return Page{}, err
		}
	}
	return Page{}, fmt.Errorf("rate limited after %d attempts: %w", fetchMaxRetries, lastErr)
}
