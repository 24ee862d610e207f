package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/assembly-governance/session-service/application"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/ports"
)

const minJustificationLength = 10

// CastBallotCommand is the write-model input for a member-cast ballot.
type CastBallotCommand struct {
	MotionID       string
	MemberID       string
	Value          string
	IdempotencyKey string
}

// CastBallotResult returns the final ballot state plus replay/overwrite
// markers the transport layer maps to API semantics.
type CastBallotResult struct {
	Ballot    entities.Ballot
	Replayed  bool
	WasUpdate bool
}

// ManualVoteCommand is an operator-entered override with a mandatory
// justification.
type ManualVoteCommand struct {
	MeetingID     string
	MotionID      string
	MemberID      string
	Value         string
	Justification string
}

// UnanimityCommand casts the same value for every eligible member as N
// independent per-member writes.
type UnanimityCommand struct {
	MeetingID     string
	MotionID      string
	Value         string
	Justification string
}

type BatchResult struct {
	SuccessCount int
	ErrorCount   int
}

// BallotUseCase owns ballot ingestion: direct casts, manual overrides,
// audited cancellations and the unanimity batch.
type BallotUseCase struct {
	Motions        ports.MotionRepository
	Ballots        ports.BallotRepository
	Attendance     ports.AttendanceRepository
	Directory      ports.MemberDirectory
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// CastBallot upserts one ballot per (motion, member), last write wins by
// server receipt time. The idempotency key collapses client retries of the
// same logical submission into one effect; a new explicit choice is a new
// submission and legitimately overwrites.
func (uc BallotUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	motionID := strings.TrimSpace(cmd.MotionID)
	memberID := strings.TrimSpace(cmd.MemberID)
	value, ok := entities.ParseBallotValue(strings.TrimSpace(cmd.Value))
	if motionID == "" || memberID == "" || !ok {
		return CastBallotResult{}, domainerrors.ErrInvalidInput
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return CastBallotResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashCastBallotCommand(motionID, memberID, string(value))
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return CastBallotResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			logger.Warn("ballot cast idempotency conflict",
				"event", "session_ballot_cast_idempotency_conflict",
				"module", "assembly-governance/session-service",
				"layer", "application",
				"motion_id", motionID,
				"member_id", memberID,
			)
			return CastBallotResult{}, domainerrors.ErrIdempotencyConflict
		}
		ballot, exists, err := uc.Ballots.GetBallot(ctx, motionID, memberID)
		if err != nil {
			return CastBallotResult{}, err
		}
		if !exists {
			return CastBallotResult{}, domainerrors.ErrBallotNotFound
		}
		return CastBallotResult{Ballot: ballot, Replayed: true}, nil
	}

	motion, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !motion.IsOpen() {
		return CastBallotResult{}, domainerrors.ErrMotionNotOpen
	}

	member, err := uc.Directory.GetMember(ctx, memberID)
	if err != nil {
		return CastBallotResult{}, err
	}
	eligible, err := canCastFor(ctx, uc.Attendance, motion.MeetingID, memberID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !member.Active || !eligible {
		return CastBallotResult{}, domainerrors.ErrNotEligible
	}

	_, existed, err := uc.Ballots.GetBallot(ctx, motionID, memberID)
	if err != nil {
		return CastBallotResult{}, err
	}
	ballot := entities.Ballot{
		MotionID: motionID,
		MemberID: memberID,
		Value:    value,
		Source:   entities.BallotSourceDirect,
		Weight:   member.VotingPower,
		CastAt:   now,
	}
	if err := uc.Ballots.UpsertBallot(ctx, ballot); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.appendBallotEvent(ctx, "ballot.cast", motion.MeetingID, ballot, now, nil); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(cmd.IdempotencyKey),
		RequestHash: requestHash,
		EntityID:    motionID + "/" + memberID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return CastBallotResult{}, err
	}

	logger.Info("ballot cast",
		"event", "session_ballot_cast",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"motion_id", motionID,
		"member_id", memberID,
		"value", string(value),
		"overwrite", existed,
	)
	return CastBallotResult{Ballot: ballot, WasUpdate: existed}, nil
}

// ManualVote records an operator override (source=manual). Eligibility is not
// checked; the justification is mandatory and must be non-trivial.
func (uc BallotUseCase) ManualVote(ctx context.Context, cmd ManualVoteCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	motionID := strings.TrimSpace(cmd.MotionID)
	memberID := strings.TrimSpace(cmd.MemberID)
	value, ok := entities.ParseBallotValue(strings.TrimSpace(cmd.Value))
	if motionID == "" || memberID == "" || !ok {
		return entities.Ballot{}, domainerrors.ErrInvalidInput
	}
	justification := strings.TrimSpace(cmd.Justification)
	if len(justification) < minJustificationLength {
		return entities.Ballot{}, domainerrors.ErrJustificationRequired
	}

	motion, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return entities.Ballot{}, err
	}
	if !motion.IsOpen() {
		return entities.Ballot{}, domainerrors.ErrMotionNotOpen
	}
	if meetingID := strings.TrimSpace(cmd.MeetingID); meetingID != "" && meetingID != motion.MeetingID {
		return entities.Ballot{}, domainerrors.ErrMotionNotFound
	}
	member, err := uc.Directory.GetMember(ctx, memberID)
	if err != nil {
		return entities.Ballot{}, err
	}

	now := uc.now()
	ballot := entities.Ballot{
		MotionID:      motionID,
		MemberID:      memberID,
		Value:         value,
		Source:        entities.BallotSourceManual,
		Weight:        member.VotingPower,
		Justification: justification,
		CastAt:        now,
	}
	if err := uc.Ballots.UpsertBallot(ctx, ballot); err != nil {
		return entities.Ballot{}, err
	}
	if err := uc.appendBallotEvent(ctx, "ballot.cast", motion.MeetingID, ballot, now, map[string]any{
		"justification": justification,
	}); err != nil {
		return entities.Ballot{}, err
	}

	logger.Info("manual ballot recorded",
		"event", "session_ballot_manual",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"motion_id", motionID,
		"member_id", memberID,
		"value", string(value),
	)
	return ballot, nil
}

// CancelBallot deletes the row. It is an audit-relevant destructive action:
// the reason is mandatory and the deletion is emitted to the audit sink. A
// closed motion's persisted tallies and decision are untouched.
func (uc BallotUseCase) CancelBallot(ctx context.Context, motionID string, memberID string, reason string) error {
	logger := application.ResolveLogger(uc.Logger)
	motionID = strings.TrimSpace(motionID)
	memberID = strings.TrimSpace(memberID)
	if motionID == "" || memberID == "" {
		return domainerrors.ErrInvalidInput
	}
	if strings.TrimSpace(reason) == "" {
		return domainerrors.ErrReasonRequired
	}

	ballot, found, err := uc.Ballots.GetBallot(ctx, motionID, memberID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrBallotNotFound
	}
	deleted, err := uc.Ballots.DeleteBallot(ctx, motionID, memberID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainerrors.ErrBallotNotFound
	}

	motion, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return err
	}
	now := uc.now()
	if err := uc.appendBallotEvent(ctx, "ballot.cancelled", motion.MeetingID, ballot, now, map[string]any{
		"reason": strings.TrimSpace(reason),
	}); err != nil {
		return err
	}

	logger.Info("ballot cancelled",
		"event", "session_ballot_cancelled",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"motion_id", motionID,
		"member_id", memberID,
		"reason", strings.TrimSpace(reason),
	)
	return nil
}

// ApplyUnanimity writes the same ballot for every eligible member. Each write
// is independent and idempotent; a partial failure leaves the applied subset
// in place and is reported, never rolled back.
func (uc BallotUseCase) ApplyUnanimity(ctx context.Context, cmd UnanimityCommand) (BatchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	motionID := strings.TrimSpace(cmd.MotionID)
	meetingID := strings.TrimSpace(cmd.MeetingID)
	value, ok := entities.ParseBallotValue(strings.TrimSpace(cmd.Value))
	if motionID == "" || meetingID == "" || !ok {
		return BatchResult{}, domainerrors.ErrInvalidInput
	}

	motion, err := uc.Motions.GetMotion(ctx, motionID)
	if err != nil {
		return BatchResult{}, err
	}
	if motion.MeetingID != meetingID || !motion.IsOpen() {
		return BatchResult{}, domainerrors.ErrMotionNotOpen
	}

	justification := strings.TrimSpace(cmd.Justification)
	if justification == "" {
		justification = "unanimity declared by the chair"
	}

	voterIDs, err := eligibleVoterIDs(ctx, uc.Directory, uc.Attendance, meetingID)
	if err != nil {
		return BatchResult{}, err
	}

	now := uc.now()
	result := BatchResult{}
	for _, memberID := range voterIDs {
		member, err := uc.Directory.GetMember(ctx, memberID)
		if err != nil {
			result.ErrorCount++
			continue
		}
		ballot := entities.Ballot{
			MotionID:      motionID,
			MemberID:      memberID,
			Value:         value,
			Source:        entities.BallotSourceManual,
			Weight:        member.VotingPower,
			Justification: justification,
			CastAt:        now,
		}
		if err := uc.Ballots.UpsertBallot(ctx, ballot); err != nil {
			result.ErrorCount++
			continue
		}
		if err := uc.appendBallotEvent(ctx, "ballot.cast", meetingID, ballot, now, map[string]any{
			"justification": justification,
			"batch":         "unanimity",
		}); err != nil {
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}

	logger.Info("unanimity applied",
		"event", "session_unanimity_applied",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"meeting_id", meetingID,
		"motion_id", motionID,
		"value", string(value),
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
	)
	return result, nil
}

func (uc BallotUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc BallotUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func (uc BallotUseCase) appendBallotEvent(
	ctx context.Context,
	eventType string,
	meetingID string,
	ballot entities.Ballot,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"meeting_id": meetingID,
		"motion_id":  ballot.MotionID,
		"member_id":  ballot.MemberID,
		"value":      string(ballot.Value),
		"source":     string(ballot.Source),
		"weight":     ballot.Weight.String(),
		"cast_at":    occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newSessionEnvelope(eventID, eventType, meetingID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func hashCastBallotCommand(motionID string, memberID string, value string) string {
	payload := map[string]string{
		"motion_id": motionID,
		"member_id": memberID,
		"value":     value,
		"op":        "cast_ballot",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
