package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	"plenum/contexts/assembly-governance/session-service/ports"
)

var storeTime = time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)

func seedLiveMeeting(t *testing.T, store *Store, meetingID string) {
	t.Helper()
	if err := store.SaveMeeting(context.Background(), entities.Meeting{
		MeetingID: meetingID,
		Title:     "assembly",
		Status:    entities.MeetingStatusLive,
		CreatedAt: storeTime,
		UpdatedAt: storeTime,
	}); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}
}

func seedStoredMotion(t *testing.T, store *Store, meetingID string, motionID string) {
	t.Helper()
	if err := store.SaveMotion(context.Background(), entities.Motion{
		MotionID:  motionID,
		MeetingID: meetingID,
		Position:  1,
		Title:     "motion",
		Tallies:   entities.ZeroTallies(),
		CreatedAt: storeTime,
		UpdatedAt: storeTime,
	}); err != nil {
		t.Fatalf("SaveMotion failed: %v", err)
	}
}

func TestTransitionMeetingGuardsOnStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.SaveMeeting(ctx, entities.Meeting{
		MeetingID: "meet-1",
		Status:    entities.MeetingStatusDraft,
	}); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	applied, err := store.TransitionMeeting(ctx, "meet-1", entities.MeetingStatusDraft, entities.MeetingStatusScheduled, false, storeTime)
	if err != nil || !applied {
		t.Fatalf("expected the transition to apply, got applied=%v err=%v", applied, err)
	}

	// A second commit from the same observed status loses the guard.
	applied, err = store.TransitionMeeting(ctx, "meet-1", entities.MeetingStatusDraft, entities.MeetingStatusScheduled, false, storeTime)
	if err != nil {
		t.Fatalf("TransitionMeeting failed: %v", err)
	}
	if applied {
		t.Fatal("expected a stale transition to be refused")
	}
}

func TestTransitionMeetingGuardsOnOpenMotion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedLiveMeeting(t, store, "meet-1")
	seedStoredMotion(t, store, "meet-1", "mot-1")
	if claimed, err := store.OpenMotion(ctx, "meet-1", "mot-1", storeTime); err != nil || !claimed {
		t.Fatalf("OpenMotion failed: claimed=%v err=%v", claimed, err)
	}

	applied, err := store.TransitionMeeting(ctx, "meet-1", entities.MeetingStatusLive, entities.MeetingStatusClosed, true, storeTime)
	if err != nil {
		t.Fatalf("TransitionMeeting failed: %v", err)
	}
	if applied {
		t.Fatal("expected the close to be refused while a motion is open")
	}
}

func TestTransitionMeetingStampsLifecycleTimes(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.SaveMeeting(ctx, entities.Meeting{
		MeetingID: "meet-1",
		Status:    entities.MeetingStatusFrozen,
	}); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	if _, err := store.TransitionMeeting(ctx, "meet-1", entities.MeetingStatusFrozen, entities.MeetingStatusLive, false, storeTime); err != nil {
		t.Fatalf("TransitionMeeting failed: %v", err)
	}
	meeting, err := store.GetMeeting(ctx, "meet-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.OpenedAt == nil || !meeting.OpenedAt.Equal(storeTime) {
		t.Fatalf("expected opened_at to be stamped, got %v", meeting.OpenedAt)
	}

	// Pausing and resuming keeps the original opened_at.
	later := storeTime.Add(time.Hour)
	if _, err := store.TransitionMeeting(ctx, "meet-1", entities.MeetingStatusLive, entities.MeetingStatusPaused, false, later); err != nil {
		t.Fatalf("TransitionMeeting failed: %v", err)
	}
	if _, err := store.TransitionMeeting(ctx, "meet-1", entities.MeetingStatusPaused, entities.MeetingStatusLive, false, later); err != nil {
		t.Fatalf("TransitionMeeting failed: %v", err)
	}
	meeting, err = store.GetMeeting(ctx, "meet-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if !meeting.OpenedAt.Equal(storeTime) {
		t.Fatalf("expected opened_at to survive a pause, got %v", meeting.OpenedAt)
	}
}

func TestOpenMotionSingleSlot(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedLiveMeeting(t, store, "meet-1")
	seedStoredMotion(t, store, "meet-1", "mot-1")
	seedStoredMotion(t, store, "meet-1", "mot-2")

	claimed, err := store.OpenMotion(ctx, "meet-1", "mot-1", storeTime)
	if err != nil || !claimed {
		t.Fatalf("expected the first open to claim the slot, got claimed=%v err=%v", claimed, err)
	}
	claimed, err = store.OpenMotion(ctx, "meet-1", "mot-2", storeTime)
	if err != nil {
		t.Fatalf("OpenMotion failed: %v", err)
	}
	if claimed {
		t.Fatal("expected the second open to lose the slot")
	}

	meeting, err := store.GetMeeting(ctx, "meet-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.OpenMotionID != "mot-1" {
		t.Fatalf("expected mot-1 to hold the slot, got %q", meeting.OpenMotionID)
	}
}

func TestOpenMotionConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedLiveMeeting(t, store, "meet-1")
	seedStoredMotion(t, store, "meet-1", "mot-1")
	seedStoredMotion(t, store, "meet-1", "mot-2")

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, motionID := range []string{"mot-1", "mot-2"} {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			claimed, err := store.OpenMotion(ctx, "meet-1", id, storeTime)
			if err != nil {
				t.Errorf("OpenMotion %s failed: %v", id, err)
				return
			}
			results[slot] = claimed
		}(i, motionID)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("expected exactly one winner, got %v", results)
	}
	meeting, err := store.GetMeeting(ctx, "meet-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.OpenMotionID == "" {
		t.Fatal("expected the slot to be held after the race")
	}
	winner := "mot-1"
	if results[1] {
		winner = "mot-2"
	}
	if meeting.OpenMotionID != winner {
		t.Fatalf("expected %s to hold the slot, got %q", winner, meeting.OpenMotionID)
	}
}

func TestOpenMotionRefusesReopen(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedLiveMeeting(t, store, "meet-1")
	seedStoredMotion(t, store, "meet-1", "mot-1")

	if claimed, err := store.OpenMotion(ctx, "meet-1", "mot-1", storeTime); err != nil || !claimed {
		t.Fatalf("OpenMotion failed: claimed=%v err=%v", claimed, err)
	}
	if closed, err := store.CloseMotion(ctx, "meet-1", "mot-1", storeTime, entities.DecisionAdopted, "majority_threshold_met", entities.ZeroTallies()); err != nil || !closed {
		t.Fatalf("CloseMotion failed: closed=%v err=%v", closed, err)
	}

	claimed, err := store.OpenMotion(ctx, "meet-1", "mot-1", storeTime)
	if err != nil {
		t.Fatalf("OpenMotion failed: %v", err)
	}
	if claimed {
		t.Fatal("expected a decided motion to stay closed")
	}
}

func TestCloseMotionReleasesSlotOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedLiveMeeting(t, store, "meet-1")
	seedStoredMotion(t, store, "meet-1", "mot-1")
	if claimed, err := store.OpenMotion(ctx, "meet-1", "mot-1", storeTime); err != nil || !claimed {
		t.Fatalf("OpenMotion failed: claimed=%v err=%v", claimed, err)
	}

	tallies := entities.ZeroTallies()
	tallies.VotesFor = 3
	closed, err := store.CloseMotion(ctx, "meet-1", "mot-1", storeTime, entities.DecisionAdopted, "majority_threshold_met", tallies)
	if err != nil || !closed {
		t.Fatalf("CloseMotion failed: closed=%v err=%v", closed, err)
	}
	motion, err := store.GetMotion(ctx, "mot-1")
	if err != nil {
		t.Fatalf("GetMotion failed: %v", err)
	}
	if !motion.IsClosed() || motion.Tallies.VotesFor != 3 || motion.DecisionReason != "majority_threshold_met" {
		t.Fatalf("unexpected closed motion: %+v", motion)
	}

	closed, err = store.CloseMotion(ctx, "meet-1", "mot-1", storeTime, entities.DecisionAdopted, "majority_threshold_met", tallies)
	if err != nil {
		t.Fatalf("CloseMotion failed: %v", err)
	}
	if closed {
		t.Fatal("expected a repeated close to report the slot already released")
	}
}

func TestIdempotencyRecordExpires(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	record := ports.IdempotencyRecord{
		Key:         "cast-1",
		RequestHash: "abc",
		EntityID:    "mot-1/mem-alice",
		ExpiresAt:   storeTime.Add(time.Hour),
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, found, err := store.Get(ctx, "cast-1", storeTime); err != nil || !found {
		t.Fatalf("expected the record before expiry, got found=%v err=%v", found, err)
	}
	if _, found, err := store.Get(ctx, "cast-1", storeTime.Add(2*time.Hour)); err != nil {
		t.Fatalf("Get failed: %v", err)
	} else if found {
		t.Fatal("expected the record to be gone after expiry")
	}
}

func TestOutboxPendingAndPublished(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"evt-1", "evt-2"} {
		if err := store.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:      id,
			EventType:    "motion.closed",
			OccurredAt:   storeTime,
			PartitionKey: "meet-1",
		}); err != nil {
			t.Fatalf("AppendOutbox failed: %v", err)
		}
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, "evt-1", storeTime); err != nil {
		t.Fatalf("MarkOutboxPublished failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected only evt-2 pending, got %+v", pending)
	}
}
