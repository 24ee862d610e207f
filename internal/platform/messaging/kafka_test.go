package messaging

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"plenum/contexts/assembly-governance/session-service/ports"
)

func TestPublishReachesSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("NewKafka failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan ports.EventEnvelope, 1)
	err = bus.Subscribe(ctx, "motion.closed", "test-group", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	want := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "motion.closed",
		OccurredAt:   time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
		PartitionKey: "meet-1",
	}
	if err := bus.Publish(ctx, "motion.closed", want); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != want.EventID || got.EventType != want.EventType {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the event")
	}

	cancel()
	waitForUnsubscribe(t, bus, "motion.closed")
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("NewKafka failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan ports.EventEnvelope, 1)
	err = bus.Subscribe(ctx, "meeting.transitioned", "test-group", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, "ballot.cast", ports.EventEnvelope{EventID: "evt-1", EventType: "ballot.cast"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		t.Fatalf("expected no delivery across topics, got %+v", got)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	waitForUnsubscribe(t, bus, "meeting.transitioned")
}

func waitForUnsubscribe(t *testing.T, bus *Kafka, topic string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		bus.mu.RLock()
		remaining := len(bus.subscribers[topic])
		bus.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subscriber goroutine did not exit")
}
