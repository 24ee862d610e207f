package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
)

func TestSetAttendanceUpserts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMember("mem-alice", "1")
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	result, err := f.attendance().SetAttendance(ctx, SetAttendanceCommand{
		MeetingID: meeting.MeetingID,
		MemberID:  "mem-alice",
		Mode:      "remote",
	})
	if err != nil {
		t.Fatalf("SetAttendance failed: %v", err)
	}
	if result.Attendance.Mode != entities.AttendanceRemote {
		t.Fatalf("expected remote, got %s", result.Attendance.Mode)
	}

	// The second write for the same member replaces the mode.
	result, err = f.attendance().SetAttendance(ctx, SetAttendanceCommand{
		MeetingID: meeting.MeetingID,
		MemberID:  "mem-alice",
		Mode:      "absent",
	})
	if err != nil {
		t.Fatalf("second SetAttendance failed: %v", err)
	}
	rows, err := f.store.ListAttendanceByMeeting(ctx, meeting.MeetingID)
	if err != nil {
		t.Fatalf("ListAttendanceByMeeting failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Mode != entities.AttendanceAbsent {
		t.Fatalf("expected one absent row, got %+v", rows)
	}
}

func TestSetAttendanceRejectsUnknownMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.attendance().SetAttendance(ctx, SetAttendanceCommand{
		MeetingID: "meet-1",
		MemberID:  "mem-alice",
		Mode:      "teleported",
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetProxyRejectsSelfDelegation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.attendance().SetProxy(ctx, SetProxyCommand{
		MeetingID:  "meet-1",
		GiverID:    "mem-alice",
		ReceiverID: "mem-alice",
	})
	if !errors.Is(err, domainerrors.ErrSelfProxy) {
		t.Fatalf("expected ErrSelfProxy, got %v", err)
	}
}

func TestSetProxyWarnsWhenGiverAttends(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMember("mem-giver", "1")
	f.seedMember("mem-receiver", "1")
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	f.markPresent(ctx, meeting.MeetingID, "mem-giver")

	result, err := f.attendance().SetProxy(ctx, SetProxyCommand{
		MeetingID:  meeting.MeetingID,
		GiverID:    "mem-giver",
		ReceiverID: "mem-receiver",
	})
	if err != nil {
		t.Fatalf("SetProxy failed: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a dormant-proxy warning, got %v", result.Warnings)
	}
}

func TestSetProxyReplacesPreviousDelegation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMember("mem-giver", "1")
	f.seedMember("mem-first", "1")
	f.seedMember("mem-second", "1")
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	if _, err := f.attendance().SetProxy(ctx, SetProxyCommand{
		MeetingID:  meeting.MeetingID,
		GiverID:    "mem-giver",
		ReceiverID: "mem-first",
	}); err != nil {
		t.Fatalf("first SetProxy failed: %v", err)
	}
	if _, err := f.attendance().SetProxy(ctx, SetProxyCommand{
		MeetingID:  meeting.MeetingID,
		GiverID:    "mem-giver",
		ReceiverID: "mem-second",
	}); err != nil {
		t.Fatalf("second SetProxy failed: %v", err)
	}

	proxy, found, err := f.store.GetActiveProxyByGiver(ctx, meeting.MeetingID, "mem-giver")
	if err != nil {
		t.Fatalf("GetActiveProxyByGiver failed: %v", err)
	}
	if !found || proxy.ReceiverID != "mem-second" {
		t.Fatalf("expected the active proxy to point at mem-second, got %+v found=%v", proxy, found)
	}
	active, err := f.store.ListActiveProxiesByMeeting(ctx, meeting.MeetingID)
	if err != nil {
		t.Fatalf("ListActiveProxiesByMeeting failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active proxy, got %d", len(active))
	}
}

func TestRevokeProxyNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	err := f.attendance().RevokeProxy(ctx, "meet-1", "mem-giver")
	if !errors.Is(err, domainerrors.ErrProxyNotFound) {
		t.Fatalf("expected ErrProxyNotFound, got %v", err)
	}
}

func TestBulkPresentDefaultsToActiveMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMember("mem-alice", "1")
	f.seedMember("mem-bob", "1")
	f.store.SetMember(entities.Member{
		MemberID:    "mem-retired",
		DisplayName: "mem-retired",
		VotingPower: decimal.RequireFromString("1"),
		Active:      false,
	})
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	result, err := f.attendance().BulkPresent(ctx, meeting.MeetingID, nil)
	if err != nil {
		t.Fatalf("BulkPresent failed: %v", err)
	}
	if result.SuccessCount != 2 || result.ErrorCount != 0 {
		t.Fatalf("expected 2 successes for the active members, got %+v", result)
	}
}

func TestBulkPresentCountsPerMemberFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMember("mem-alice", "1")
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	result, err := f.attendance().BulkPresent(ctx, meeting.MeetingID, []string{"mem-alice", "mem-ghost"})
	if err != nil {
		t.Fatalf("BulkPresent failed: %v", err)
	}
	if result.SuccessCount != 1 || result.ErrorCount != 1 {
		t.Fatalf("expected a partial result, got %+v", result)
	}
}

func TestEligibleWeightCountsProxyGiverOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMember("mem-giver", "2")
	f.seedMember("mem-receiver", "1.5")
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{Title: "assembly"})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	f.markPresent(ctx, meeting.MeetingID, "mem-receiver")
	if _, err := f.attendance().SetProxy(ctx, SetProxyCommand{
		MeetingID:  meeting.MeetingID,
		GiverID:    "mem-giver",
		ReceiverID: "mem-receiver",
	}); err != nil {
		t.Fatalf("SetProxy failed: %v", err)
	}

	snapshot, err := f.attendance().EligibleWeight(ctx, meeting.MeetingID)
	if err != nil {
		t.Fatalf("EligibleWeight failed: %v", err)
	}
	if snapshot.MemberCount != 2 {
		t.Fatalf("expected 2 eligible members, got %d", snapshot.MemberCount)
	}
	if !snapshot.TotalWeight.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("expected total weight 3.5, got %s", snapshot.TotalWeight)
	}

	// The giver turning up makes the proxy dormant; the totals stay the same
	// because the giver is now counted directly instead.
	f.markPresent(ctx, meeting.MeetingID, "mem-giver")
	snapshot, err = f.attendance().EligibleWeight(ctx, meeting.MeetingID)
	if err != nil {
		t.Fatalf("EligibleWeight after giver arrival failed: %v", err)
	}
	if snapshot.MemberCount != 2 || !snapshot.TotalWeight.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("expected the giver counted once, got %+v", snapshot)
	}
}
