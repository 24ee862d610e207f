package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string        `envconfig:"SERVICE_NAME" default:"plenum"`
	HTTPPort       string        `envconfig:"HTTP_PORT" default:"8080"`
	PostgresDSN    string        `envconfig:"POSTGRES_DSN"`
	KafkaBrokers   []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	PolicyFile     string        `envconfig:"POLICY_FILE" default:"policies.yaml"`
	OutboxPoll     time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxBatch    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"168h"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	cfg.HTTPPort = strings.TrimSpace(cfg.HTTPPort)
	return cfg, nil
}
