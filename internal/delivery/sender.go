package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/metrics"
)

// Sender delivers one batch of records and classifies the result.
type Sender interface {
	Send(ctx context.Context, records []domain.Record) Outcome
}

// EndpointConfig holds settings for the telemetry delivery endpoint.
type EndpointConfig struct {
	URL        string
	Token      string
	CustomerID string
	Timeout    time.Duration
}

// Endpoint sends batches to the telemetry backend as HTTP POST with a
// JSON body {customer_id, data: [...]} and bearer-token authorization.
type Endpoint struct {
	cfg    EndpointConfig
	client *http.Client
}

type payload struct {
	CustomerID string          `json:"customer_id"`
	Data       []domain.Record `json:"data"`
}

// NewEndpoint creates an endpoint client. Timeout defaults to 10s.
func NewEndpoint(cfg EndpointConfig) *Endpoint {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Endpoint{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Send posts one batch. Network-level failures (timeout, connection
// refused) come back as retryable outcomes; everything else goes
// through Classify.
func (e *Endpoint) Send(ctx context.Context, records []domain.Record) Outcome {
	body, err := json.Marshal(payload{CustomerID: e.cfg.CustomerID, Data: records})
	if err != nil {
		// A batch that cannot be serialized will never succeed.
		return Outcome{Kind: OutcomeNonRetryable, Reason: "marshal payload: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: OutcomeNonRetryable, Reason: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.Token)

	slog.Debug("Sending batch",
		"url", e.cfg.URL,
		"records", len(records),
		"token", redactToken(e.cfg.Token),
	)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeRetryable, Reason: "network error: " + err.Error()}
	}
	defer resp.Body.Close()
	metrics.DeliveryLatency.Observe(time.Since(start).Seconds())

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return Classify(resp.StatusCode, resp.Header, respBody)
}

// redactToken keeps only a 4-character suffix for logging.
func redactToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
