package commands

import (
	"context"
	"errors"
	"testing"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
)

func TestCreateMeetingStartsInDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{
		Title:          "  annual general assembly  ",
		QuorumPolicyID: "quorum-half",
		VotePolicyID:   "vote-simple",
	})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	if meeting.Status != entities.MeetingStatusDraft {
		t.Fatalf("expected draft, got %s", meeting.Status)
	}
	if meeting.Title != "annual general assembly" {
		t.Fatalf("expected a trimmed title, got %q", meeting.Title)
	}
	if meeting.ConvocationNo != 1 {
		t.Fatalf("expected convocation to default to 1, got %d", meeting.ConvocationNo)
	}
}

func TestCreateMeetingRequiresTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "   "})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTransitionFullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "ordinary assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	path := []entities.MeetingStatus{
		entities.MeetingStatusScheduled,
		entities.MeetingStatusFrozen,
		entities.MeetingStatusLive,
		entities.MeetingStatusPaused,
		entities.MeetingStatusLive,
		entities.MeetingStatusClosed,
		entities.MeetingStatusValidated,
		entities.MeetingStatusArchived,
	}
	for _, to := range path {
		result, err := f.meetings().Transition(ctx, TransitionMeetingCommand{
			MeetingID: meeting.MeetingID,
			ToStatus:  string(to),
			ActorRole: string(entities.RoleAdmin),
		})
		if err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
		if result.Meeting.Status != to {
			t.Fatalf("expected status %s, got %s", to, result.Meeting.Status)
		}
	}
}

func TestTransitionRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	_, err = f.meetings().Transition(ctx, TransitionMeetingCommand{
		MeetingID: meeting.MeetingID,
		ToStatus:  string(entities.MeetingStatusScheduled),
		ActorRole: "janitor",
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTransitionRejectsSkippedState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	_, err = f.meetings().Transition(ctx, TransitionMeetingCommand{
		MeetingID: meeting.MeetingID,
		ToStatus:  string(entities.MeetingStatusLive),
		ActorRole: string(entities.RoleAdmin),
	})
	if !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionCloseBlockedByOpenMotion(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedDefaultPolicies()
	meeting := f.liveMeeting(ctx)
	f.openMotion(ctx, meeting.MeetingID)

	_, err := f.meetings().Transition(ctx, TransitionMeetingCommand{
		MeetingID: meeting.MeetingID,
		ToStatus:  string(entities.MeetingStatusClosed),
		ActorRole: string(entities.RolePresident),
	})
	if !errors.Is(err, domainerrors.ErrOpenMotionExists) {
		t.Fatalf("expected ErrOpenMotionExists, got %v", err)
	}
}

func TestTransitionWarnings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "empty agenda"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	for _, to := range []entities.MeetingStatus{
		entities.MeetingStatusScheduled,
		entities.MeetingStatusFrozen,
	} {
		if _, err := f.meetings().Transition(ctx, TransitionMeetingCommand{
			MeetingID: meeting.MeetingID,
			ToStatus:  string(to),
			ActorRole: string(entities.RoleAdmin),
		}); err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
	}

	// Going live with no motions warns, never blocks.
	result, err := f.meetings().Transition(ctx, TransitionMeetingCommand{
		MeetingID: meeting.MeetingID,
		ToStatus:  string(entities.MeetingStatusLive),
		ActorRole: string(entities.RolePresident),
	})
	if err != nil {
		t.Fatalf("transition to live failed: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "no motions created yet" {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}

	// Closing with an undecided motion on the agenda warns too.
	if _, err := f.motions().CreateMotion(ctx, CreateMotionCommand{
		MeetingID: meeting.MeetingID,
		Title:     "left on the table",
	}); err != nil {
		t.Fatalf("CreateMotion failed: %v", err)
	}
	result, err = f.meetings().Transition(ctx, TransitionMeetingCommand{
		MeetingID: meeting.MeetingID,
		ToStatus:  string(entities.MeetingStatusClosed),
		ActorRole: string(entities.RolePresident),
	})
	if err != nil {
		t.Fatalf("transition to closed failed: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "1 motions were never decided" {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}
}

func TestTransitionUnknownMeeting(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.meetings().Transition(ctx, TransitionMeetingCommand{
		MeetingID: "missing",
		ToStatus:  string(entities.MeetingStatusScheduled),
		ActorRole: string(entities.RoleAdmin),
	})
	if !errors.Is(err, domainerrors.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}
