package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "plenum/contexts/assembly-governance/session-service/application"
	"plenum/contexts/assembly-governance/session-service/ports"
)

// OutboxRelay ships persisted audit events to the bus. Rows are marked
// published only after the publish succeeds, and the relay stops on the first
// failure so the next cycle reprocesses safely.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("session outbox list failed",
			"event", "session_outbox_list_failed",
			"module", "assembly-governance/session-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("session outbox decode failed",
				"event", "session_outbox_decode_failed",
				"module", "assembly-governance/session-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("session outbox publish failed",
				"event", "session_outbox_publish_failed",
				"module", "assembly-governance/session-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("session outbox mark published failed",
				"event", "session_outbox_mark_published_failed",
				"module", "assembly-governance/session-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("session outbox relay cycle completed",
		"event", "session_outbox_relay_completed",
		"module", "assembly-governance/session-service",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
