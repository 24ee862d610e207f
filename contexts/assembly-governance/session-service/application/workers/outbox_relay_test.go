package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"plenum/contexts/assembly-governance/session-service/adapters/memory"
	"plenum/contexts/assembly-governance/session-service/ports"
)

type capturingPublisher struct {
	published []publishedEvent
	failOn    string
}

type publishedEvent struct {
	topic string
	event ports.EventEnvelope
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failOn != "" && event.EventID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, publishedEvent{topic: topic, event: event})
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, eventID string, eventType string) {
	t.Helper()
	if err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:      eventID,
		EventType:    eventType,
		OccurredAt:   time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
		PartitionKey: "meet-1",
	}); err != nil {
		t.Fatalf("AppendOutbox failed: %v", err)
	}
}

func TestRunOnceShipsPendingRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	appendEvent(t, store, "evt-1", "motion.opened")
	appendEvent(t, store, "evt-2", "motion.closed")

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.published))
	}
	// The topic is the event type.
	if publisher.published[0].topic != "motion.opened" || publisher.published[1].topic != "motion.closed" {
		t.Fatalf("unexpected topics: %+v", publisher.published)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected the outbox to drain, got %d pending", len(pending))
	}

	// A second cycle with nothing pending is a no-op.
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("empty RunOnce failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected no duplicate publishes, got %d", len(publisher.published))
	}
}

func TestRunOnceStopsOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	appendEvent(t, store, "evt-1", "ballot.cast")
	appendEvent(t, store, "evt-2", "ballot.cast")

	publisher := &capturingPublisher{failOn: "evt-1"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(ctx); err == nil {
		t.Fatal("expected the cycle to fail on the broken publish")
	}

	// Neither row was marked; the next cycle reprocesses both.
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected both rows still pending, got %d", len(pending))
	}

	publisher.failOn = ""
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("retry cycle failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published events after the retry, got %d", len(publisher.published))
	}
}
