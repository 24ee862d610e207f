package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"plenum/contexts/assembly-governance/session-service/application/commands"
	"plenum/contexts/assembly-governance/session-service/application/queries"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	httptransport "plenum/contexts/assembly-governance/session-service/transport/http"
)

type Handler struct {
	Meetings    commands.MeetingUseCase
	Motions     commands.MotionUseCase
	Ballots     commands.BallotUseCase
	Attendance  commands.AttendanceUseCase
	Projections queries.ProjectionUseCase
	Logger      *slog.Logger
}

func (h Handler) CreateMeetingHandler(
	ctx context.Context,
	req httptransport.CreateMeetingRequest,
) (httptransport.MeetingResponse, error) {
	meeting, err := h.Meetings.CreateMeeting(ctx, commands.CreateMeetingCommand{
		Title:          req.Title,
		ConvocationNo:  req.ConvocationNo,
		QuorumPolicyID: req.QuorumPolicyID,
		VotePolicyID:   req.VotePolicyID,
	})
	if err != nil {
		return httptransport.MeetingResponse{}, err
	}
	return mapMeeting(meeting), nil
}

func (h Handler) TransitionMeetingHandler(
	ctx context.Context,
	meetingID string,
	actorRole string,
	req httptransport.TransitionMeetingRequest,
) (httptransport.TransitionMeetingResponse, error) {
	result, err := h.Meetings.Transition(ctx, commands.TransitionMeetingCommand{
		MeetingID: meetingID,
		ToStatus:  req.ToStatus,
		ActorRole: actorRole,
	})
	if err != nil {
		return httptransport.TransitionMeetingResponse{}, err
	}
	return httptransport.TransitionMeetingResponse{
		Meeting:  mapMeeting(result.Meeting),
		Warnings: result.Warnings,
	}, nil
}

func (h Handler) CreateMotionHandler(
	ctx context.Context,
	meetingID string,
	req httptransport.CreateMotionRequest,
) (httptransport.MotionResponse, error) {
	motion, err := h.Motions.CreateMotion(ctx, commands.CreateMotionCommand{
		MeetingID:   meetingID,
		Title:       req.Title,
		Description: req.Description,
		Secret:      req.Secret,
	})
	if err != nil {
		return httptransport.MotionResponse{}, err
	}
	return mapMotion(motion), nil
}

func (h Handler) ReorderMotionsHandler(
	ctx context.Context,
	meetingID string,
	req httptransport.ReorderMotionsRequest,
) error {
	return h.Motions.ReorderMotions(ctx, meetingID, req.MotionIDs)
}

func (h Handler) OpenMotionHandler(ctx context.Context, meetingID string, motionID string) error {
	return h.Motions.OpenMotion(ctx, meetingID, motionID)
}

func (h Handler) CloseMotionHandler(
	ctx context.Context,
	meetingID string,
	motionID string,
) (httptransport.CloseMotionResponse, error) {
	result, err := h.Motions.CloseMotion(ctx, meetingID, motionID)
	if err != nil {
		return httptransport.CloseMotionResponse{}, err
	}
	return httptransport.CloseMotionResponse{
		Motion:          mapMotion(result.Motion),
		Decision:        string(result.Decision),
		DecisionReason:  result.Reason,
		Tallies:         mapTallies(result.Tallies),
		EligibleCount:   result.Eligible.MemberCount,
		EligibleWeight:  result.Eligible.TotalWeight.String(),
		VotesCast:       result.Tallies.VotesCast(),
		ParticipatingNo: result.Participating.MemberCount,
	}, nil
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	motionID string,
	memberID string,
	idempotencyKey string,
	req httptransport.CastBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Ballots.CastBallot(ctx, commands.CastBallotCommand{
		MotionID:       motionID,
		MemberID:       memberID,
		Value:          req.Value,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	response := mapBallot(result.Ballot)
	response.Replayed = result.Replayed
	response.WasUpdate = result.WasUpdate
	return response, nil
}

func (h Handler) ManualVoteHandler(
	ctx context.Context,
	meetingID string,
	motionID string,
	req httptransport.ManualVoteRequest,
) (httptransport.BallotResponse, error) {
	ballot, err := h.Ballots.ManualVote(ctx, commands.ManualVoteCommand{
		MeetingID:     meetingID,
		MotionID:      motionID,
		MemberID:      req.MemberID,
		Value:         req.Value,
		Justification: req.Justification,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) CancelBallotHandler(
	ctx context.Context,
	motionID string,
	memberID string,
	req httptransport.CancelBallotRequest,
) error {
	return h.Ballots.CancelBallot(ctx, motionID, memberID, req.Reason)
}

func (h Handler) UnanimityHandler(
	ctx context.Context,
	meetingID string,
	motionID string,
	req httptransport.UnanimityRequest,
) (httptransport.BatchResponse, error) {
	result, err := h.Ballots.ApplyUnanimity(ctx, commands.UnanimityCommand{
		MeetingID:     meetingID,
		MotionID:      motionID,
		Value:         req.Value,
		Justification: req.Justification,
	})
	if err != nil {
		return httptransport.BatchResponse{}, err
	}
	return httptransport.BatchResponse{
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
	}, nil
}

func (h Handler) SetAttendanceHandler(
	ctx context.Context,
	meetingID string,
	memberID string,
	req httptransport.SetAttendanceRequest,
) (httptransport.AttendanceResponse, error) {
	result, err := h.Attendance.SetAttendance(ctx, commands.SetAttendanceCommand{
		MeetingID: meetingID,
		MemberID:  memberID,
		Mode:      req.Mode,
	})
	if err != nil {
		return httptransport.AttendanceResponse{}, err
	}
	return httptransport.AttendanceResponse{
		MeetingID: result.Attendance.MeetingID,
		MemberID:  result.Attendance.MemberID,
		Mode:      string(result.Attendance.Mode),
		Warnings:  result.Warnings,
	}, nil
}

func (h Handler) BulkPresentHandler(
	ctx context.Context,
	meetingID string,
	req httptransport.BulkPresentRequest,
) (httptransport.BatchResponse, error) {
	result, err := h.Attendance.BulkPresent(ctx, meetingID, req.MemberIDs)
	if err != nil {
		return httptransport.BatchResponse{}, err
	}
	return httptransport.BatchResponse{
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
	}, nil
}

func (h Handler) SetProxyHandler(
	ctx context.Context,
	meetingID string,
	req httptransport.SetProxyRequest,
) (httptransport.ProxyResponse, error) {
	result, err := h.Attendance.SetProxy(ctx, commands.SetProxyCommand{
		MeetingID:  meetingID,
		GiverID:    req.GiverID,
		ReceiverID: req.ReceiverID,
	})
	if err != nil {
		return httptransport.ProxyResponse{}, err
	}
	return httptransport.ProxyResponse{
		MeetingID:  result.Proxy.MeetingID,
		GiverID:    result.Proxy.GiverID,
		ReceiverID: result.Proxy.ReceiverID,
		GrantedAt:  result.Proxy.GrantedAt.Format(time.RFC3339),
		Warnings:   result.Warnings,
	}, nil
}

func (h Handler) RevokeProxyHandler(ctx context.Context, meetingID string, giverID string) error {
	return h.Attendance.RevokeProxy(ctx, meetingID, giverID)
}

func (h Handler) EligibleWeightHandler(ctx context.Context, meetingID string) (httptransport.EligibleWeightResponse, error) {
	snapshot, err := h.Attendance.EligibleWeight(ctx, meetingID)
	if err != nil {
		return httptransport.EligibleWeightResponse{}, err
	}
	return httptransport.EligibleWeightResponse{
		MeetingID:   meetingID,
		MemberCount: snapshot.MemberCount,
		TotalWeight: snapshot.TotalWeight.String(),
	}, nil
}

func (h Handler) CurrentMotionHandler(ctx context.Context, meetingID string) (httptransport.CurrentMotionResponse, error) {
	view, found, err := h.Projections.CurrentMotion(ctx, meetingID)
	if err != nil {
		return httptransport.CurrentMotionResponse{}, err
	}
	if !found {
		return httptransport.CurrentMotionResponse{
			Tallies: mapTallies(entities.ZeroTallies()),
		}, nil
	}
	motion := mapMotion(view.Motion)
	return httptransport.CurrentMotionResponse{
		HasOpenMotion: true,
		Motion:        &motion,
		VotesCast:     view.VotesCast,
		Tallies:       mapTallies(view.Tallies),
	}, nil
}

func (h Handler) MotionResultHandler(
	ctx context.Context,
	motionID string,
	canReveal bool,
) (httptransport.MotionResultResponse, error) {
	view, err := h.Projections.MotionResult(ctx, motionID, canReveal)
	if err != nil {
		return httptransport.MotionResultResponse{}, err
	}
	return httptransport.MotionResultResponse{
		Motion:    mapMotion(view.Motion),
		Tallies:   mapTallies(view.Tallies),
		VotesCast: view.VotesCast,
		Masked:    view.Masked,
	}, nil
}

func (h Handler) MeetingSnapshotHandler(ctx context.Context, meetingID string) (httptransport.MeetingSnapshotResponse, error) {
	view, err := h.Projections.MeetingSnapshot(ctx, meetingID)
	if err != nil {
		return httptransport.MeetingSnapshotResponse{}, err
	}
	motions := make([]httptransport.MotionResponse, 0, len(view.Motions))
	for _, motion := range view.Motions {
		motions = append(motions, mapMotion(motion))
	}
	return httptransport.MeetingSnapshotResponse{
		Meeting: mapMeeting(view.Meeting),
		Motions: motions,
	}, nil
}

func mapMeeting(meeting entities.Meeting) httptransport.MeetingResponse {
	return httptransport.MeetingResponse{
		MeetingID:      meeting.MeetingID,
		Title:          meeting.Title,
		Status:         string(meeting.Status),
		ConvocationNo:  meeting.ConvocationNo,
		QuorumPolicyID: meeting.QuorumPolicyID,
		VotePolicyID:   meeting.VotePolicyID,
		OpenMotionID:   meeting.OpenMotionID,
		OpenedAt:       formatOptionalTime(meeting.OpenedAt),
		ClosedAt:       formatOptionalTime(meeting.ClosedAt),
	}
}

func mapMotion(motion entities.Motion) httptransport.MotionResponse {
	return httptransport.MotionResponse{
		MotionID:       motion.MotionID,
		MeetingID:      motion.MeetingID,
		Title:          motion.Title,
		Description:    motion.Description,
		Position:       motion.Position,
		Secret:         motion.Secret,
		Decision:       string(motion.Decision),
		DecisionReason: motion.DecisionReason,
		OpenedAt:       formatOptionalTime(motion.OpenedAt),
		ClosedAt:       formatOptionalTime(motion.ClosedAt),
	}
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		MotionID:      ballot.MotionID,
		MemberID:      ballot.MemberID,
		Value:         string(ballot.Value),
		Source:        string(ballot.Source),
		Weight:        ballot.Weight.String(),
		Justification: ballot.Justification,
		CastAt:        ballot.CastAt.Format(time.RFC3339),
	}
}

func mapTallies(tallies entities.Tallies) httptransport.TalliesResponse {
	return httptransport.TalliesResponse{
		VotesFor:      tallies.VotesFor,
		VotesAgainst:  tallies.VotesAgainst,
		VotesAbstain:  tallies.VotesAbstain,
		WeightFor:     tallies.WeightFor.String(),
		WeightAgainst: tallies.WeightAgainst.String(),
		WeightAbstain: tallies.WeightAbstain.String(),
	}
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
