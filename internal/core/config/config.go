package config

import (
	redisclient "github.com/trandat/shipper/internal/infra/redis"
	"github.com/trandat/shipper/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Endpoint EndpointConfig     `yaml:"endpoint"`
	Delivery DeliveryConfig     `yaml:"delivery"`
	FanOut   FanOutConfig       `yaml:"fanout"`
	Queues   QueueConfig        `yaml:"queues"`
	Pipeline PipelineConfig     `yaml:"pipeline"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EndpointConfig holds telemetry endpoint settings. Durations are
// plain seconds so they read naturally in YAML.
type EndpointConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	CustomerID     string `yaml:"customer_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DeliveryConfig holds batching, retry and circuit breaker settings.
type DeliveryConfig struct {
	BatchSize              int `yaml:"batch_size"`
	MaxRetries             int `yaml:"max_retries"`
	FailureThreshold       int `yaml:"failure_threshold"`
	RecoveryTimeoutSeconds int `yaml:"recovery_timeout_seconds"`
}

// FanOutConfig holds work redistribution settings.
type FanOutConfig struct {
	Threshold int `yaml:"threshold"`
	BatchSize int `yaml:"batch_size"`
}

// QueueConfig names the Redis keys backing the external queues.
type QueueConfig struct {
	WorkKey             string `yaml:"work_key"`
	DeadLetterKey       string `yaml:"dead_letter_key"`
	DeadLetterChunkSize int    `yaml:"dead_letter_chunk_size"`
}

// PipelineConfig carries provenance stamped onto every record.
type PipelineConfig struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	DataOwner   string `yaml:"data_owner"`
}
