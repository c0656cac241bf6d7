package domain

import "time"

// FailedBatch is a batch that exhausted its delivery attempts, or was
// rejected outright while the circuit was open. It is the unit handed
// to the dead-letter sink and surfaced to callers.
type FailedBatch struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Records    []Record  `json:"records"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

// DeadLetterMessage is one chunk of a failed batch as published to the
// dead-letter queue. Chunk size is bounded by the transport's message
// size limits.
type DeadLetterMessage struct {
	Records         []Record `json:"records"`
	Timestamp       float64  `json:"timestamp"`
	CustomerID      string   `json:"customer_id"`
	FailedTimestamp string   `json:"failed_timestamp"`
}
