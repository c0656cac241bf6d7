package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveryAttemptsTotal tracks send attempts against the telemetry endpoint
	DeliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipper_delivery_attempts_total",
			Help: "Total number of delivery attempts",
		},
		[]string{"outcome"},
	)

	// RecordsDeliveredTotal tracks records successfully delivered
	RecordsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shipper_records_delivered_total",
			Help: "Total number of records delivered",
		},
	)

	// RecordsFailedTotal tracks records that exhausted delivery attempts
	RecordsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipper_records_failed_total",
			Help: "Total number of records that could not be delivered",
		},
		[]string{"reason"},
	)

	// DeliveryLatency tracks endpoint round-trip latency
	DeliveryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shipper_delivery_latency_seconds",
			Help:    "Delivery request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CircuitState tracks the breaker state per downstream target (0=closed, 1=open, 2=half-open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipper_circuit_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"target"},
	)

	// DeadLetterMessagesTotal tracks chunks published to the dead-letter queue
	DeadLetterMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipper_dead_letter_messages_total",
			Help: "Total number of dead-letter messages published",
		},
		[]string{"result"},
	)

	// FanOutBatchesTotal tracks work items published by the fan-out controller
	FanOutBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipper_fanout_batches_total",
			Help: "Total number of fan-out work items published",
		},
		[]string{"type"},
	)

	// CheckpointWritesTotal tracks checkpoint persistence attempts
	CheckpointWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipper_checkpoint_writes_total",
			Help: "Total number of checkpoint writes",
		},
		[]string{"stream", "result"},
	)

	// ValidationFailuresTotal tracks records rejected by schema validation
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipper_validation_failures_total",
			Help: "Total number of records rejected by validation",
		},
		[]string{"data_type"},
	)
)
