package queries

import (
	"context"
	"sort"
	"strings"

	"plenum/contexts/assembly-governance/session-service/domain/decision"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/ports"
)

// ProjectionUseCase serves the read-only views polled by voting terminals,
// the operator console and the projection screen. It is never on the write
// path and never blocks writers.
type ProjectionUseCase struct {
	Meetings   ports.MeetingRepository
	Motions    ports.MotionRepository
	Ballots    ports.BallotRepository
	Attendance ports.AttendanceRepository
	Directory  ports.MemberDirectory
}

type CurrentMotionView struct {
	Motion    entities.Motion
	Tallies   entities.Tallies
	VotesCast int
}

// CurrentMotion returns the meeting's open motion with live tallies, or
// found=false when no motion is open.
func (uc ProjectionUseCase) CurrentMotion(ctx context.Context, meetingID string) (CurrentMotionView, bool, error) {
	meeting, err := uc.Meetings.GetMeeting(ctx, strings.TrimSpace(meetingID))
	if err != nil {
		return CurrentMotionView{}, false, err
	}
	if meeting.OpenMotionID == "" {
		return CurrentMotionView{}, false, nil
	}
	motion, err := uc.Motions.GetMotion(ctx, meeting.OpenMotionID)
	if err != nil {
		return CurrentMotionView{}, false, err
	}
	ballots, err := uc.Ballots.ListBallotsByMotion(ctx, motion.MotionID)
	if err != nil {
		return CurrentMotionView{}, false, err
	}
	tallies := decision.Tally(ballots)
	return CurrentMotionView{
		Motion:    motion,
		Tallies:   tallies,
		VotesCast: tallies.VotesCast(),
	}, true, nil
}

type MotionResultView struct {
	Motion    entities.Motion
	Tallies   entities.Tallies
	VotesCast int
	// Masked is set when the motion is secret and the caller lacks reveal
	// rights; the per-value breakdown is zeroed, the decision and the total
	// cast count stay visible.
	Masked bool
}

// MotionResult returns the decision breakdown for a motion. Closed motions
// serve the persisted terminal tallies; open motions serve live ones.
func (uc ProjectionUseCase) MotionResult(ctx context.Context, motionID string, canReveal bool) (MotionResultView, error) {
	motion, err := uc.Motions.GetMotion(ctx, strings.TrimSpace(motionID))
	if err != nil {
		return MotionResultView{}, err
	}
	if motion.OpenedAt == nil {
		return MotionResultView{}, domainerrors.ErrMotionNotOpen
	}

	tallies := motion.Tallies
	if !motion.IsClosed() {
		ballots, err := uc.Ballots.ListBallotsByMotion(ctx, motion.MotionID)
		if err != nil {
			return MotionResultView{}, err
		}
		tallies = decision.Tally(ballots)
	}

	view := MotionResultView{
		Motion:    motion,
		Tallies:   tallies,
		VotesCast: tallies.VotesCast(),
	}
	if motion.Secret && !canReveal {
		view.Masked = true
		view.Tallies = entities.ZeroTallies()
	}
	return view, nil
}

type MeetingSnapshotView struct {
	Meeting entities.Meeting
	Motions []entities.Motion
}

// MeetingSnapshot is the poll-everything view: meeting status, open motion id
// and the ordered motion list.
func (uc ProjectionUseCase) MeetingSnapshot(ctx context.Context, meetingID string) (MeetingSnapshotView, error) {
	meeting, err := uc.Meetings.GetMeeting(ctx, strings.TrimSpace(meetingID))
	if err != nil {
		return MeetingSnapshotView{}, err
	}
	motions, err := uc.Motions.ListMotionsByMeeting(ctx, meeting.MeetingID)
	if err != nil {
		return MeetingSnapshotView{}, err
	}
	sort.Slice(motions, func(i, j int) bool {
		return motions[i].Position < motions[j].Position
	})
	return MeetingSnapshotView{Meeting: meeting, Motions: motions}, nil
}
