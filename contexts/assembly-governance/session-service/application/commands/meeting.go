package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/assembly-governance/session-service/application"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/domain/lifecycle"
	"plenum/contexts/assembly-governance/session-service/ports"
)

// TransitionMeetingCommand requests one meeting lifecycle move.
type TransitionMeetingCommand struct {
	MeetingID string
	ToStatus  string
	ActorRole string
}

// TransitionMeetingResult carries the new meeting state plus non-fatal
// warnings that never block the transition.
type TransitionMeetingResult struct {
	Meeting  entities.Meeting
	Warnings []string
}

// MeetingUseCase owns meeting creation and lifecycle transitions.
type MeetingUseCase struct {
	Meetings ports.MeetingRepository
	Motions  ports.MotionRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

type CreateMeetingCommand struct {
	Title          string
	ConvocationNo  int
	QuorumPolicyID string
	VotePolicyID   string
}

// CreateMeeting registers a meeting in draft. Policy ids are lookup keys into
// the external policy store and are not validated until a motion closes.
func (uc MeetingUseCase) CreateMeeting(ctx context.Context, cmd CreateMeetingCommand) (entities.Meeting, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return entities.Meeting{}, domainerrors.ErrInvalidInput
	}
	convocation := cmd.ConvocationNo
	if convocation <= 0 {
		convocation = 1
	}

	meetingID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Meeting{}, err
	}
	now := uc.now()
	meeting := entities.Meeting{
		MeetingID:      meetingID,
		Title:          title,
		Status:         entities.MeetingStatusDraft,
		ConvocationNo:  convocation,
		QuorumPolicyID: strings.TrimSpace(cmd.QuorumPolicyID),
		VotePolicyID:   strings.TrimSpace(cmd.VotePolicyID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.Meetings.SaveMeeting(ctx, meeting); err != nil {
		return entities.Meeting{}, err
	}
	if err := uc.appendEvent(ctx, "meeting.created", meetingID, now, map[string]any{
		"meeting_id":     meetingID,
		"convocation_no": convocation,
	}); err != nil {
		return entities.Meeting{}, err
	}
	return meeting, nil
}

// Transition validates the move against the state machine, commits it as a
// guarded compare-and-set, and emits the audit event. live→closed re-checks
// "no open motion" at commit time, not only at request start, so it cannot
// race a last-moment OpenMotion.
func (uc MeetingUseCase) Transition(ctx context.Context, cmd TransitionMeetingCommand) (TransitionMeetingResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	meetingID := strings.TrimSpace(cmd.MeetingID)
	if meetingID == "" {
		return TransitionMeetingResult{}, domainerrors.ErrInvalidInput
	}
	target, ok := entities.ParseMeetingStatus(strings.TrimSpace(cmd.ToStatus))
	if !ok {
		return TransitionMeetingResult{}, domainerrors.ErrInvalidInput
	}
	role, ok := entities.ParseActorRole(strings.TrimSpace(cmd.ActorRole))
	if !ok {
		return TransitionMeetingResult{}, domainerrors.ErrForbidden
	}

	meeting, err := uc.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return TransitionMeetingResult{}, err
	}
	rule, err := lifecycle.CanTransition(meeting.Status, target, role)
	if err != nil {
		logger.Warn("meeting transition rejected",
			"event", "session_meeting_transition_rejected",
			"module", "assembly-governance/session-service",
			"layer", "application",
			"meeting_id", meetingID,
			"from", string(meeting.Status),
			"to", string(target),
			"actor_role", string(role),
			"error", err.Error(),
		)
		return TransitionMeetingResult{}, err
	}
	if rule.RequiresNoOpenMotion && meeting.OpenMotionID != "" {
		return TransitionMeetingResult{}, domainerrors.ErrOpenMotionExists
	}

	warnings, err := uc.transitionWarnings(ctx, meeting, target)
	if err != nil {
		return TransitionMeetingResult{}, err
	}

	now := uc.now()
	applied, err := uc.Meetings.TransitionMeeting(ctx, meetingID, meeting.Status, target, rule.RequiresNoOpenMotion, now)
	if err != nil {
		return TransitionMeetingResult{}, err
	}
	if !applied {
		// The guard failed between read and commit; reload to tell a lost
		// status race apart from a late-opened motion.
		current, err := uc.Meetings.GetMeeting(ctx, meetingID)
		if err != nil {
			return TransitionMeetingResult{}, err
		}
		if rule.RequiresNoOpenMotion && current.OpenMotionID != "" {
			return TransitionMeetingResult{}, domainerrors.ErrOpenMotionExists
		}
		return TransitionMeetingResult{}, domainerrors.ErrInvalidTransition
	}

	updated, err := uc.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return TransitionMeetingResult{}, err
	}
	if err := uc.appendEvent(ctx, "meeting.transitioned", meetingID, now, map[string]any{
		"meeting_id": meetingID,
		"from":       string(meeting.Status),
		"to":         string(target),
		"actor_role": string(role),
		"warnings":   warnings,
	}); err != nil {
		return TransitionMeetingResult{}, err
	}

	logger.Info("meeting transitioned",
		"event", "session_meeting_transitioned",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"meeting_id", meetingID,
		"from", string(meeting.Status),
		"to", string(target),
		"actor_role", string(role),
		"warning_count", len(warnings),
	)
	return TransitionMeetingResult{Meeting: updated, Warnings: warnings}, nil
}

func (uc MeetingUseCase) transitionWarnings(
	ctx context.Context,
	meeting entities.Meeting,
	target entities.MeetingStatus,
) ([]string, error) {
	warnings := make([]string, 0, 2)
	if target != entities.MeetingStatusLive && target != entities.MeetingStatusClosed {
		return warnings, nil
	}
	motions, err := uc.Motions.ListMotionsByMeeting(ctx, meeting.MeetingID)
	if err != nil {
		return nil, err
	}
	if target == entities.MeetingStatusLive && len(motions) == 0 {
		warnings = append(warnings, "no motions created yet")
	}
	if target == entities.MeetingStatusClosed {
		undecided := 0
		for _, motion := range motions {
			if !motion.IsClosed() {
				undecided++
			}
		}
		if undecided > 0 {
			warnings = append(warnings, fmt.Sprintf("%d motions were never decided", undecided))
		}
	}
	return warnings, nil
}

func (uc MeetingUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc MeetingUseCase) appendEvent(
	ctx context.Context,
	eventType string,
	meetingID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newSessionEnvelope(eventID, eventType, meetingID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
