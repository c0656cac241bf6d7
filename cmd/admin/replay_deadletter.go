// Replays dead-letter messages back through the work queue. Each
// dead-letter chunk becomes one work item, so replayed records take the
// same validated delivery path as fresh ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/trandat/shipper/internal/core/config"
	"github.com/trandat/shipper/internal/core/domain"
	redisclient "github.com/trandat/shipper/internal/infra/redis"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	limit := flag.Int("limit", 0, "Maximum messages to replay (0 = all)")
	workType := flag.String("type", domain.WorkTypeCostUsageBatch, "Work item type for replayed records")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	dlq := redisclient.NewDeadLetterQueue(client, cfg.Queues.DeadLetterKey)
	work := redisclient.NewWorkQueue(client, cfg.Queues.WorkKey)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	replayed := 0
	for *limit == 0 || replayed < *limit {
		msg, err := dlq.Pop(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to pop dead-letter message: %v\n", err)
			os.Exit(1)
		}
		if msg == nil {
			break
		}

		item := domain.WorkItem{
			Type:      *workType,
			Records:   msg.Records,
			Timestamp: time.Now().Format(time.RFC3339Nano),
		}
		if err := work.Publish(ctx, item); err != nil {
			// Push the chunk back so nothing is lost mid-replay.
			if reErr := dlq.Publish(ctx, *msg); reErr != nil {
				fmt.Fprintf(os.Stderr, "failed to requeue dead-letter message: %v\n", reErr)
			}
			fmt.Fprintf(os.Stderr, "failed to publish work item: %v\n", err)
			os.Exit(1)
		}
		replayed++
	}

	fmt.Printf("Replayed %d dead-letter messages to the work queue\n", replayed)
}
