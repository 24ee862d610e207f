package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "plenum/contexts/assembly-governance/session-service/application"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/ports"
)

type SetAttendanceCommand struct {
	MeetingID string
	MemberID  string
	Mode      string
}

type SetAttendanceResult struct {
	Attendance entities.Attendance
	Warnings   []string
}

type SetProxyCommand struct {
	MeetingID  string
	GiverID    string
	ReceiverID string
}

type SetProxyResult struct {
	Proxy    entities.Proxy
	Warnings []string
}

// AttendanceUseCase owns the attendance ledger and proxy delegations.
type AttendanceUseCase struct {
	Meetings   ports.MeetingRepository
	Attendance ports.AttendanceRepository
	Directory  ports.MemberDirectory
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// SetAttendance upserts a member's participation mode. Marking a proxy giver
// present/remote is allowed; the proxy goes dormant and a warning says so.
func (uc AttendanceUseCase) SetAttendance(ctx context.Context, cmd SetAttendanceCommand) (SetAttendanceResult, error) {
	meetingID := strings.TrimSpace(cmd.MeetingID)
	memberID := strings.TrimSpace(cmd.MemberID)
	mode, ok := entities.ParseAttendanceMode(strings.TrimSpace(cmd.Mode))
	if meetingID == "" || memberID == "" || !ok {
		return SetAttendanceResult{}, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Meetings.GetMeeting(ctx, meetingID); err != nil {
		return SetAttendanceResult{}, err
	}
	if _, err := uc.Directory.GetMember(ctx, memberID); err != nil {
		return SetAttendanceResult{}, err
	}

	warnings := make([]string, 0, 1)
	if mode != entities.AttendanceAbsent {
		if _, held, err := uc.Attendance.GetActiveProxyByGiver(ctx, meetingID, memberID); err != nil {
			return SetAttendanceResult{}, err
		} else if held {
			warnings = append(warnings, "member holds an active proxy as giver; it is now dormant")
		}
	}

	now := uc.now()
	attendance := entities.Attendance{
		MeetingID: meetingID,
		MemberID:  memberID,
		Mode:      mode,
		UpdatedAt: now,
	}
	if err := uc.Attendance.UpsertAttendance(ctx, attendance); err != nil {
		return SetAttendanceResult{}, err
	}
	if err := uc.appendEvent(ctx, "attendance.set", meetingID, now, map[string]any{
		"meeting_id": meetingID,
		"member_id":  memberID,
		"mode":       string(mode),
	}); err != nil {
		return SetAttendanceResult{}, err
	}
	return SetAttendanceResult{Attendance: attendance, Warnings: warnings}, nil
}

// BulkPresent marks the listed members present (or every active directory
// member when the list is empty) as independent per-member upserts. Partial
// failure leaves the applied subset in place.
func (uc AttendanceUseCase) BulkPresent(ctx context.Context, meetingID string, memberIDs []string) (BatchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return BatchResult{}, domainerrors.ErrInvalidInput
	}
	if _, err := uc.Meetings.GetMeeting(ctx, meetingID); err != nil {
		return BatchResult{}, err
	}

	targets := make([]string, 0, len(memberIDs))
	for _, raw := range memberIDs {
		if id := strings.TrimSpace(raw); id != "" {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		members, err := uc.Directory.ListMembers(ctx)
		if err != nil {
			return BatchResult{}, err
		}
		for _, member := range members {
			if member.Active {
				targets = append(targets, member.MemberID)
			}
		}
	}

	result := BatchResult{}
	for _, memberID := range targets {
		if _, err := uc.SetAttendance(ctx, SetAttendanceCommand{
			MeetingID: meetingID,
			MemberID:  memberID,
			Mode:      string(entities.AttendancePresent),
		}); err != nil {
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}

	logger.Info("bulk present applied",
		"event", "session_bulk_present_applied",
		"module", "assembly-governance/session-service",
		"layer", "application",
		"meeting_id", meetingID,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
	)
	return result, nil
}

// SetProxy grants or replaces the giver's delegation. A giver keeps at most
// one active proxy: granting a new one revokes the previous delegation first.
func (uc AttendanceUseCase) SetProxy(ctx context.Context, cmd SetProxyCommand) (SetProxyResult, error) {
	meetingID := strings.TrimSpace(cmd.MeetingID)
	giverID := strings.TrimSpace(cmd.GiverID)
	receiverID := strings.TrimSpace(cmd.ReceiverID)
	if meetingID == "" || giverID == "" || receiverID == "" {
		return SetProxyResult{}, domainerrors.ErrInvalidInput
	}
	if giverID == receiverID {
		return SetProxyResult{}, domainerrors.ErrSelfProxy
	}
	if _, err := uc.Meetings.GetMeeting(ctx, meetingID); err != nil {
		return SetProxyResult{}, err
	}
	if _, err := uc.Directory.GetMember(ctx, giverID); err != nil {
		return SetProxyResult{}, err
	}
	if _, err := uc.Directory.GetMember(ctx, receiverID); err != nil {
		return SetProxyResult{}, err
	}

	warnings := make([]string, 0, 1)
	if row, found, err := uc.Attendance.GetAttendance(ctx, meetingID, giverID); err != nil {
		return SetProxyResult{}, err
	} else if found && attending(row.Mode, true) {
		// Warning, not an error: the proxy stays dormant while the giver
		// attends.
		warnings = append(warnings, "giver is already present; proxy recorded as dormant")
	}

	now := uc.now()
	if _, err := uc.Attendance.RevokeProxy(ctx, meetingID, giverID, now); err != nil {
		return SetProxyResult{}, err
	}
	proxy := entities.Proxy{
		MeetingID:  meetingID,
		GiverID:    giverID,
		ReceiverID: receiverID,
		GrantedAt:  now,
	}
	if err := uc.Attendance.SaveProxy(ctx, proxy); err != nil {
		return SetProxyResult{}, err
	}
	if err := uc.appendEvent(ctx, "proxy.set", meetingID, now, map[string]any{
		"meeting_id":  meetingID,
		"giver_id":    giverID,
		"receiver_id": receiverID,
	}); err != nil {
		return SetProxyResult{}, err
	}
	return SetProxyResult{Proxy: proxy, Warnings: warnings}, nil
}

// RevokeProxy stamps revoked_at. The revocation acts from that instant
// forward; ballots already cast under the proxy stay valid.
func (uc AttendanceUseCase) RevokeProxy(ctx context.Context, meetingID string, giverID string) error {
	meetingID = strings.TrimSpace(meetingID)
	giverID = strings.TrimSpace(giverID)
	if meetingID == "" || giverID == "" {
		return domainerrors.ErrInvalidInput
	}

	now := uc.now()
	revoked, err := uc.Attendance.RevokeProxy(ctx, meetingID, giverID, now)
	if err != nil {
		return err
	}
	if !revoked {
		return domainerrors.ErrProxyNotFound
	}
	return uc.appendEvent(ctx, "proxy.revoked", meetingID, now, map[string]any{
		"meeting_id": meetingID,
		"giver_id":   giverID,
	})
}

// EligibleWeight exposes the current eligibility snapshot for operator
// consoles; proxies and remote members both count here.
func (uc AttendanceUseCase) EligibleWeight(ctx context.Context, meetingID string) (entities.EligibleSnapshot, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return entities.EligibleSnapshot{}, domainerrors.ErrInvalidInput
	}
	return eligibleSnapshot(ctx, uc.Directory, uc.Attendance, meetingID, true, true)
}

func (uc AttendanceUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc AttendanceUseCase) appendEvent(
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
