package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	sessionservice "plenum/contexts/assembly-governance/session-service"
	"plenum/contexts/assembly-governance/session-service/adapters/policyfile"
	postgresadapter "plenum/contexts/assembly-governance/session-service/adapters/postgres"
	workerapp "plenum/contexts/assembly-governance/session-service/application/workers"
	"plenum/contexts/assembly-governance/session-service/ports"
	"plenum/internal/platform/config"
	"plenum/internal/platform/db"
	"plenum/internal/platform/httpserver"
	"plenum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var pg *db.Postgres
	var module sessionservice.Module

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		// Local development runs fully in memory; the store doubles as member
		// directory and policy catalogue unless a policy file is provided.
		module = sessionservice.NewInMemoryModule(logger)
		if policies, ok := loadPolicies(cfg.PolicyFile, logger); ok {
			store := module.Store
			module = sessionservice.NewModule(sessionservice.Dependencies{
				Meetings:       store,
				Motions:        store,
				Ballots:        store,
				Attendance:     store,
				Directory:      store,
				Policies:       policies,
				Idempotency:    store,
				Outbox:         store,
				Clock:          store,
				IDGen:          store,
				IdempotencyTTL: cfg.IdempotencyTTL,
				Logger:         logger,
			})
			module.Store = store
		}
	} else {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		policies, ok := loadPolicies(cfg.PolicyFile, logger)
		if !ok {
			_ = pg.Close()
			return nil, errors.New("POLICY_FILE is required when running against postgres")
		}
		module = sessionservice.NewModule(sessionservice.Dependencies{
			Meetings:       repo,
			Motions:        repo,
			Ballots:        repo,
			Attendance:     repo,
			Directory:      repo,
			Policies:       policies,
			Idempotency:    repo,
			Outbox:         repo,
			Clock:          postgresadapter.SystemClock{},
			IDGen:          postgresadapter.UUIDGenerator{},
			IdempotencyTTL: cfg.IdempotencyTTL,
			Logger:         logger,
		})
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatch,
			Logger:    logger,
		},
		pollInterval: cfg.OutboxPoll,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func loadPolicies(path string, logger *slog.Logger) (ports.PolicyStore, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, false
	}
	policies, err := policyfile.Load(path)
	if err != nil {
		logger.Warn("policy file not loaded",
			"event", "bootstrap_policy_file_skipped",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"path", path,
			"error", err.Error(),
		)
		return nil, false
	}
	return policies, true
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
