package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/assembly-governance/session-service/application"
	"plenum/contexts/assembly-governance/session-service/domain/decision"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/domain/lifecycle"
	"plenum/contexts/assembly-governance/session-service/ports"
)

type CreateMotionCommand struct {
	MeetingID   string
	Title       string
	Description string
	Secret      bool
}

type CloseMotionResult struct {
	Motion        entities.Motion
	Decision      entities.Decision
	Reason        string
	Tallies       entities.Tallies
	Eligible      entities.EligibleSnapshot
	Participating entities.EligibleSnapshot
}

// MotionUseCase owns the motion registry: ordered creation, the single-open
// invariant, terminal closes and pre-open reordering.
type MotionUseCase struct {
	Meetings   ports.MeetingRepository
	Motions    ports.MotionRepository
	Ballots    ports.BallotRepository
	Attendance ports.AttendanceRepository
	Directory  ports.MemberDirectory
	Policies   ports.PolicyStore
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// CreateMotion appends a motion at the next position. Allowed while the
// meeting still accepts motions (draft/scheduled/frozen/live).
func (uc MotionUseCase) CreateMotion(ctx context.Context, cmd CreateMotionCommand) (entities.Motion, error) {
	meetingID := strings.TrimSpace(cmd.MeetingID)
	title := strings.TrimSpace(cmd.Title)
	if meetingID == "" || title == "" {
		return entities.Motion{}, domainerrors.ErrInvalidInput
	}
	meeting, err := uc.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return entities.Motion{}, err
	}
	if !lifecycle.AcceptsMotions(meeting.Status) {
		return entities.Motion{}, domainerrors.ErrMeetingNotEditable
	}

	existing, err := uc.Motions.ListMotionsByMeeting(ctx, meetingID)
	if err != nil {
		return entities.Motion{}, err
	}
	position := 0
	for _, motion := range existing {
		if motion.Position > position {
			position = motion.Position
		}
	}

	motionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Motion{}, err
	}
	now := uc.now()
	motion := entities.Motion{
		MotionID:    motionID,
		MeetingID:   meetingID,
		Position:    position + 1,
		Title:       title,
		Description: strings.TrimSpace(cmd.Description),
		Secret:      cmd.Secret,
		Tallies:     entities.ZeroTallies(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.Motions.SaveMotion(ctx, motion); err != nil {
		return entities.Motion{}, err
	}
	if err := uc.appendEvent(ctx, "motion.created", meetingID, now, map[string]any{
		"meeting_id": meetingID,
		"motion_id":  motion.MotionID,
		"position":   motion.Position,
		"secret":     motion.Secret,
	}); err != nil {
		return entities.Motion{}, err
	}
	return motion, nil
}

// OpenMotion claims the meeting's open-motion slot. Two operators opening
// different motions concurrently serialize on the repository CAS: exactly one
// wins, the other gets ErrMotionAlreadyOpen.
func (uc MotionUseCase) OpenMotion(ctx context.Context, meetingID string, motionID string) error {
	logger := application.ResolveLogger(uc.Logger)
	meetingID = strings.TrimSpace(meetingID)
	motionID = strings.TrimSpace(motionID)
	if meetingID == "" || motionID == "" {
		return domainerrors.ErrInvalidInput
	}

	meeting, err := uc.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting.Status != entities.MeetingStatusLive {
		return domainerrors.ErrMeetingNotLive
	}
	motion, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return err
	}
	if motion.MeetingID != meetingID {
		return domainerrors.ErrMotionNotFound
	}
	if motion.IsClosed() {
		return domainerrors.ErrMotionAlreadyDecided
	}

	now := uc.now()
	claimed, err := uc.Motions.OpenMotion(ctx, meetingID, motionID, now)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Warn("motion open lost the slot race",
			"event", "session_motion_open_conflict",
			"module", "assembly-governance/session-service",
			"layer", "application",
			"meeting_id", meetingID,
			"motion_id", motionID,
		)
		return domainerrors.ErrMotionAlreadyOpen
	}

	logger.Info("motion opened",
		"event", "session_motion_opened",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"meeting_id", meetingID,
		"motion_id", motionID,
	)
	return uc.appendEvent(ctx, "motion.opened", meetingID, now, map[string]any{
		"meeting_id": meetingID,
		"motion_id":  motionID,
	})
}

// CloseMotion snapshots eligibility, runs the decision engine and persists
// the terminal result atomically with the slot release. A retry after a
// client timeout fails fast with ErrMotionNotOpen, which makes closes safe to
// retry without duplicate effects.
func (uc MotionUseCase) CloseMotion(ctx context.Context, meetingID string, motionID string) (CloseMotionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	meetingID = strings.TrimSpace(meetingID)
	motionID = strings.TrimSpace(motionID)
	if meetingID == "" || motionID == "" {
		return CloseMotionResult{}, domainerrors.ErrInvalidInput
	}

	motion, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return CloseMotionResult{}, err
	}
	if motion.MeetingID != meetingID || !motion.IsOpen() {
		return CloseMotionResult{}, domainerrors.ErrMotionNotOpen
	}
	meeting, err := uc.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return CloseMotionResult{}, err
	}

	quorumPolicy, votePolicy, err := uc.resolvePolicies(ctx, meeting)
	if err != nil {
		return CloseMotionResult{}, err
	}
	includeProxies, countRemote := true, true
	if quorumPolicy != nil {
		includeProxies = quorumPolicy.IncludeProxies
		countRemote = quorumPolicy.CountRemote
	}
	roster, err := rosterSnapshot(ctx, uc.Directory)
	if err != nil {
		return CloseMotionResult{}, err
	}
	eligible, err := eligibleSnapshot(ctx, uc.Directory, uc.Attendance, meetingID, includeProxies, countRemote)
	if err != nil {
		return CloseMotionResult{}, err
	}
	ballots, err := uc.Ballots.ListBallotsByMotion(ctx, motionID)
	if err != nil {
		return CloseMotionResult{}, err
	}

	verdict := decision.Decide(decision.Input{
		Ballots:       ballots,
		Roster:        roster,
		Eligible:      eligible,
		ConvocationNo: meeting.ConvocationNo,
		Quorum:        quorumPolicy,
		Vote:          votePolicy,
	})

	now := uc.now()
	closed, err := uc.Motions.CloseMotion(ctx, meetingID, motionID, now, verdict.Decision, verdict.Reason, verdict.Tallies)
	if err != nil {
		return CloseMotionResult{}, err
	}
	if !closed {
		return CloseMotionResult{}, domainerrors.ErrMotionNotOpen
	}

	final, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return CloseMotionResult{}, err
	}
	if err := uc.appendEvent(ctx, "motion.closed", meetingID, now, map[string]any{
		"meeting_id":      meetingID,
		"motion_id":       motionID,
		"decision":        string(verdict.Decision),
		"decision_reason": verdict.Reason,
		"votes_for":       verdict.Tallies.VotesFor,
		"votes_against":   verdict.Tallies.VotesAgainst,
		"votes_abstain":   verdict.Tallies.VotesAbstain,
		"eligible_count":  eligible.MemberCount,
		"eligible_weight": eligible.TotalWeight.String(),
	}); err != nil {
		return CloseMotionResult{}, err
	}

	logger.Info("motion closed",
		"event", "session_motion_closed",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"meeting_id", meetingID,
		"motion_id", motionID,
		"decision", string(verdict.Decision),
		"decision_reason", verdict.Reason,
		"votes_cast", verdict.Tallies.VotesCast(),
	)
	return CloseMotionResult{
		Motion:        final,
		Decision:      verdict.Decision,
		Reason:        verdict.Reason,
		Tallies:       verdict.Tallies,
		Eligible:      eligible,
		Participating: verdict.Participating,
	}, nil
}

// ReorderMotions rewrites positions for motions that were never opened. The
// listed set must cover exactly the meeting's unopened motions; opened or
// closed motions keep their historical positions.
func (uc MotionUseCase) ReorderMotions(ctx context.Context, meetingID string, orderedIDs []string) error {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" || len(orderedIDs) == 0 {
		return domainerrors.ErrInvalidInput
	}
	motions, err := uc.Motions.ListMotionsByMeeting(ctx, meetingID)
	if err != nil {
		return err
	}

	unopened := make(map[string]entities.Motion, len(motions))
	base := 0
	for _, motion := range motions {
		if motion.OpenedAt != nil {
			if motion.Position > base {
				base = motion.Position
			}
			continue
		}
		unopened[motion.MotionID] = motion
	}

	if len(orderedIDs) != len(unopened) {
		return domainerrors.ErrInvalidInput
	}
	positions := make(map[string]int, len(orderedIDs))
	for index, rawID := range orderedIDs {
		motionID := strings.TrimSpace(rawID)
		motion, ok := unopened[motionID]
		if !ok {
			// Either unknown or already open/closed; look it up to answer
			// precisely.
			if _, listed := findMotion(motions, motionID); listed {
				return domainerrors.ErrMotionOpenOrClosed
			}
			return domainerrors.ErrMotionNotFound
		}
		if _, duplicate := positions[motion.MotionID]; duplicate {
			return domainerrors.ErrInvalidInput
		}
		positions[motion.MotionID] = base + index + 1
	}

	now := uc.now()
	if err := uc.Motions.ReorderMotions(ctx, meetingID, positions, now); err != nil {
		return err
	}
	return uc.appendEvent(ctx, "motion.reordered", meetingID, now, map[string]any{
		"meeting_id":  meetingID,
		"ordered_ids": orderedIDs,
	})
}

func (uc MotionUseCase) resolvePolicies(
	ctx context.Context,
	meeting entities.Meeting,
) (*entities.QuorumPolicy, *entities.VotePolicy, error) {
	var quorumPolicy *entities.QuorumPolicy
	var votePolicy *entities.VotePolicy
	if id := strings.TrimSpace(meeting.QuorumPolicyID); id != "" {
		policy, err := uc.Policies.GetQuorumPolicy(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		quorumPolicy = &policy
	}
	if id := strings.TrimSpace(meeting.VotePolicyID); id != "" {
		policy, err := uc.Policies.GetVotePolicy(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		votePolicy = &policy
	}
	return quorumPolicy, votePolicy, nil
}

func findMotion(motions []entities.Motion, motionID string) (entities.Motion, bool) {
	for _, motion := range motions {
		if motion.MotionID == motionID {
			return motion, true
		}
	}
	return entities.Motion{}, false
}

func (uc MotionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc MotionUseCase) appendEvent(
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
