package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
)

func TestEndpoint_SendSuccess(t *testing.T) {
	var got payload
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ep := NewEndpoint(EndpointConfig{URL: srv.URL, Token: "secret-token-1234", CustomerID: "cust-1"})
	out := ep.Send(context.Background(), []domain.Record{{"id": "r1"}, {"id": "r2"}})

	if out.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %v (%s)", out.Kind, out.Reason)
	}
	if auth != "Bearer secret-token-1234" {
		t.Errorf("Authorization = %q", auth)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if got.CustomerID != "cust-1" || len(got.Data) != 2 {
		t.Errorf("payload = customer %q with %d records, want cust-1 with 2", got.CustomerID, len(got.Data))
	}
}

func TestEndpoint_SendRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ep := NewEndpoint(EndpointConfig{URL: srv.URL})
	out := ep.Send(context.Background(), []domain.Record{{"id": "r1"}})

	if out.Kind != OutcomeRateLimited {
		t.Fatalf("expected rate limited, got %v", out.Kind)
	}
	if out.RetryAfter != 15*time.Second {
		t.Errorf("RetryAfter = %v, want 15s", out.RetryAfter)
	}
}

func TestEndpoint_SendNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	ep := NewEndpoint(EndpointConfig{URL: srv.URL})
	out := ep.Send(context.Background(), []domain.Record{{"id": "r1"}})

	if out.Kind != OutcomeRetryable {
		t.Fatalf("expected retryable on network error, got %v (%s)", out.Kind, out.Reason)
	}
}

func TestEndpoint_SendServerErrorReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	ep := NewEndpoint(EndpointConfig{URL: srv.URL})
	out := ep.Send(context.Background(), []domain.Record{{"id": "r1"}})

	if out.Kind != OutcomeRetryable {
		t.Fatalf("expected retryable, got %v", out.Kind)
	}
	if want := "server error: 503, maintenance"; out.Reason != want {
		t.Errorf("Reason = %q, want %q", out.Reason, want)
	}
}

func TestRedactToken(t *testing.T) {
	tests := []struct {
		token  string
		expect string
	}{
		{"secret-token-1234", "****1234"},
		{"abcd", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		if got := redactToken(tt.token); got != tt.expect {
			t.Errorf("redactToken(%q) = %q, want %q", tt.token, got, tt.expect)
		}
	}
}
