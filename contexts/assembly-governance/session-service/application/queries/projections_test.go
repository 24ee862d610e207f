package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"plenum/contexts/assembly-governance/session-service/adapters/memory"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
)

var projectionTime = time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)

func newProjections(store *memory.Store) ProjectionUseCase {
	return ProjectionUseCase{
		Meetings:   store,
		Motions:    store,
		Ballots:    store,
		Attendance: store,
		Directory:  store,
	}
}

func seedMeeting(t *testing.T, store *memory.Store, meetingID string) {
	t.Helper()
	if err := store.SaveMeeting(context.Background(), entities.Meeting{
		MeetingID:     meetingID,
		Title:         "assembly",
		Status:        entities.MeetingStatusLive,
		ConvocationNo: 1,
		CreatedAt:     projectionTime,
		UpdatedAt:     projectionTime,
	}); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}
}

func seedMotion(t *testing.T, store *memory.Store, meetingID string, motionID string, position int, secret bool) {
	t.Helper()
	if err := store.SaveMotion(context.Background(), entities.Motion{
		MotionID:  motionID,
		MeetingID: meetingID,
		Position:  position,
		Title:     "motion " + motionID,
		Secret:    secret,
		Tallies:   entities.ZeroTallies(),
		CreatedAt: projectionTime,
		UpdatedAt: projectionTime,
	}); err != nil {
		t.Fatalf("SaveMotion failed: %v", err)
	}
}

func openMotion(t *testing.T, store *memory.Store, meetingID string, motionID string) {
	t.Helper()
	claimed, err := store.OpenMotion(context.Background(), meetingID, motionID, projectionTime)
	if err != nil || !claimed {
		t.Fatalf("OpenMotion failed: claimed=%v err=%v", claimed, err)
	}
}

func castBallot(t *testing.T, store *memory.Store, motionID string, memberID string, value entities.BallotValue) {
	t.Helper()
	if err := store.UpsertBallot(context.Background(), entities.Ballot{
		MotionID: motionID,
		MemberID: memberID,
		Value:    value,
		Source:   entities.BallotSourceDirect,
		Weight:   decimal.NewFromInt(1),
		CastAt:   projectionTime,
	}); err != nil {
		t.Fatalf("UpsertBallot failed: %v", err)
	}
}

func TestCurrentMotionNoneOpen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMeeting(t, store, "meet-1")

	_, found, err := newProjections(store).CurrentMotion(ctx, "meet-1")
	if err != nil {
		t.Fatalf("CurrentMotion failed: %v", err)
	}
	if found {
		t.Fatal("expected no open motion")
	}
}

func TestCurrentMotionLiveTallies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMeeting(t, store, "meet-1")
	seedMotion(t, store, "meet-1", "mot-1", 1, false)
	openMotion(t, store, "meet-1", "mot-1")
	castBallot(t, store, "mot-1", "mem-alice", entities.BallotFor)
	castBallot(t, store, "mot-1", "mem-bob", entities.BallotAgainst)

	view, found, err := newProjections(store).CurrentMotion(ctx, "meet-1")
	if err != nil {
		t.Fatalf("CurrentMotion failed: %v", err)
	}
	if !found {
		t.Fatal("expected the open motion to be found")
	}
	if view.Motion.MotionID != "mot-1" {
		t.Fatalf("expected mot-1, got %s", view.Motion.MotionID)
	}
	if view.VotesCast != 2 || view.Tallies.VotesFor != 1 || view.Tallies.VotesAgainst != 1 {
		t.Fatalf("unexpected tallies: %+v", view)
	}
}

func TestMotionResultNeverOpened(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMeeting(t, store, "meet-1")
	seedMotion(t, store, "meet-1", "mot-1", 1, false)

	_, err := newProjections(store).MotionResult(ctx, "mot-1", true)
	if !errors.Is(err, domainerrors.ErrMotionNotOpen) {
		t.Fatalf("expected ErrMotionNotOpen, got %v", err)
	}
}

func TestMotionResultClosedServesPersistedTallies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMeeting(t, store, "meet-1")
	seedMotion(t, store, "meet-1", "mot-1", 1, false)
	openMotion(t, store, "meet-1", "mot-1")
	castBallot(t, store, "mot-1", "mem-alice", entities.BallotFor)

	tallies := entities.ZeroTallies()
	tallies.VotesFor = 1
	tallies.WeightFor = decimal.NewFromInt(1)
	closed, err := store.CloseMotion(ctx, "meet-1", "mot-1", projectionTime, entities.DecisionAdopted, "majority_threshold_met", tallies)
	if err != nil || !closed {
		t.Fatalf("CloseMotion failed: closed=%v err=%v", closed, err)
	}

	// A ballot row touched after the close must not change the served result.
	castBallot(t, store, "mot-1", "mem-bob", entities.BallotAgainst)

	view, err := newProjections(store).MotionResult(ctx, "mot-1", true)
	if err != nil {
		t.Fatalf("MotionResult failed: %v", err)
	}
	if view.VotesCast != 1 || view.Tallies.VotesFor != 1 || view.Tallies.VotesAgainst != 0 {
		t.Fatalf("expected the persisted terminal tallies, got %+v", view)
	}
	if view.Motion.Decision != entities.DecisionAdopted {
		t.Fatalf("expected adopted, got %s", view.Motion.Decision)
	}
}

func TestMotionResultSecretMasking(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMeeting(t, store, "meet-1")
	seedMotion(t, store, "meet-1", "mot-1", 1, true)
	openMotion(t, store, "meet-1", "mot-1")
	castBallot(t, store, "mot-1", "mem-alice", entities.BallotFor)
	castBallot(t, store, "mot-1", "mem-bob", entities.BallotAbstain)

	masked, err := newProjections(store).MotionResult(ctx, "mot-1", false)
	if err != nil {
		t.Fatalf("MotionResult failed: %v", err)
	}
	if !masked.Masked {
		t.Fatal("expected the view to be masked")
	}
	if masked.Tallies.VotesFor != 0 || masked.Tallies.VotesAbstain != 0 {
		t.Fatalf("expected zeroed per-value tallies, got %+v", masked.Tallies)
	}
	if masked.VotesCast != 2 {
		t.Fatalf("expected the total cast count to stay visible, got %d", masked.VotesCast)
	}

	revealed, err := newProjections(store).MotionResult(ctx, "mot-1", true)
	if err != nil {
		t.Fatalf("MotionResult failed: %v", err)
	}
	if revealed.Masked || revealed.Tallies.VotesFor != 1 {
		t.Fatalf("expected the full breakdown for a privileged caller, got %+v", revealed)
	}
}

func TestMeetingSnapshotOrdersMotions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMeeting(t, store, "meet-1")
	seedMotion(t, store, "meet-1", "mot-c", 3, false)
	seedMotion(t, store, "meet-1", "mot-a", 1, false)
	seedMotion(t, store, "meet-1", "mot-b", 2, false)

	view, err := newProjections(store).MeetingSnapshot(ctx, "meet-1")
	if err != nil {
		t.Fatalf("MeetingSnapshot failed: %v", err)
	}
	if len(view.Motions) != 3 {
		t.Fatalf("expected 3 motions, got %d", len(view.Motions))
	}
	for i, want := range []string{"mot-a", "mot-b", "mot-c"} {
		if view.Motions[i].MotionID != want {
			t.Fatalf("expected %s at index %d, got %s", want, i, view.Motions[i].MotionID)
		}
	}
}

func TestMeetingSnapshotUnknownMeeting(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := newProjections(store).MeetingSnapshot(ctx, "missing")
	if !errors.Is(err, domainerrors.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}
