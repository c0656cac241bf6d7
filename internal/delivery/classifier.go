package delivery

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OutcomeKind tags the result of one delivery attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeRateLimited
	OutcomeNonRetryable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNonRetryable:
		return "non_retryable"
	}
	return "unknown"
}

// Outcome is the classified result of a single send attempt.
type Outcome struct {
	Kind       OutcomeKind
	Reason     string
	RetryAfter time.Duration // only set for OutcomeRateLimited
}

// DefaultRetryAfter is used when a 429 response carries no usable
// Retry-After header.
const DefaultRetryAfter = 5 * time.Second

// Classify maps an endpoint response to exactly one outcome. Pure
// mapping, no side effects. Network-level failures never reach this
// function; the sender classifies those as retryable itself.
func Classify(status int, header http.Header, body []byte) Outcome {
	if status >= 200 && status < 300 {
		return Outcome{Kind: OutcomeSuccess}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return Outcome{
			Kind:       OutcomeRateLimited,
			Reason:     fmt.Sprintf("rate limit exceeded: %d", status),
			RetryAfter: parseRetryAfter(header),
		}
	case status >= 500:
		// Server errors are retryable
		return Outcome{Kind: OutcomeRetryable, Reason: fmt.Sprintf("server error: %d, %s", status, truncate(body))}
	case status == http.StatusBadRequest:
		// Malformed payload, retrying cannot help
		return Outcome{Kind: OutcomeNonRetryable, Reason: fmt.Sprintf("bad request: %s", truncate(body))}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Outcome{Kind: OutcomeNonRetryable, Reason: fmt.Sprintf("authentication error: %d, %s", status, truncate(body))}
	}

	// Default to retryable for unknown errors
	return Outcome{Kind: OutcomeRetryable, Reason: fmt.Sprintf("unknown error: %d, %s", status, truncate(body))}
}

func parseRetryAfter(header http.Header) time.Duration {
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return DefaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
