package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Endpoint.TimeoutSeconds == 0 {
		cfg.Endpoint.TimeoutSeconds = 10
	}
	if cfg.Delivery.BatchSize == 0 {
		cfg.Delivery.BatchSize = 1000
	}
	if cfg.Delivery.MaxRetries == 0 {
		cfg.Delivery.MaxRetries = 3
	}
	if cfg.Delivery.FailureThreshold == 0 {
		cfg.Delivery.FailureThreshold = 5
	}
	if cfg.Delivery.RecoveryTimeoutSeconds == 0 {
		cfg.Delivery.RecoveryTimeoutSeconds = 30
	}
	if cfg.FanOut.Threshold == 0 {
		cfg.FanOut.Threshold = 5000
	}
	if cfg.FanOut.BatchSize == 0 {
		cfg.FanOut.BatchSize = 1000
	}
	if cfg.Queues.WorkKey == "" {
		cfg.Queues.WorkKey = "work_queue"
	}
	if cfg.Queues.DeadLetterKey == "" {
		cfg.Queues.DeadLetterKey = "dead_letter_queue"
	}
	if cfg.Queues.DeadLetterChunkSize == 0 {
		cfg.Queues.DeadLetterChunkSize = 10
	}
	if cfg.Pipeline.Environment == "" {
		cfg.Pipeline.Environment = "dev"
	}
	if cfg.Pipeline.Version == "" {
		cfg.Pipeline.Version = "1.2.0"
	}

	return &cfg, nil
}
