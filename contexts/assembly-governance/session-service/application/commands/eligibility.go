package commands

import (
	"context"

	"github.com/shopspring/decimal"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	"plenum/contexts/assembly-governance/session-service/ports"
)

// attending reports whether a participation mode contributes to eligibility.
// Remote participation can be excluded by quorum policy.
func attending(mode entities.AttendanceMode, countRemote bool) bool {
	if mode == entities.AttendancePresent {
		return true
	}
	return mode == entities.AttendanceRemote && countRemote
}

// rosterSnapshot counts the full active membership. Quorum ratios divide by
// the roster, so a thinly attended room can fail quorum; absentees thin the
// numerator, never the denominator.
func rosterSnapshot(
	ctx context.Context,
	directory ports.MemberDirectory,
) (entities.EligibleSnapshot, error) {
	members, err := directory.ListMembers(ctx)
	if err != nil {
		return entities.EligibleSnapshot{}, err
	}
	snapshot := entities.EligibleSnapshot{TotalWeight: decimal.Zero}
	for _, member := range members {
		if !member.Active {
			continue
		}
		snapshot.MemberCount++
		snapshot.TotalWeight = snapshot.TotalWeight.Add(member.VotingPower)
	}
	return snapshot, nil
}

// eligibleSnapshot computes head-count and summed weight of everyone entitled
// to vote right now: attending active members, plus (when includeProxies) the
// weight of each absent giver whose active proxy points at an attending
// receiver. The giver's weight extends the receiver's casting capacity; it is
// never added to the receiver's own weight twice.
func eligibleSnapshot(
	ctx context.Context,
	directory ports.MemberDirectory,
	attendance ports.AttendanceRepository,
	meetingID string,
	includeProxies bool,
	countRemote bool,
) (entities.EligibleSnapshot, error) {
	rows, err := attendance.ListAttendanceByMeeting(ctx, meetingID)
	if err != nil {
		return entities.EligibleSnapshot{}, err
	}
	modes := make(map[string]entities.AttendanceMode, len(rows))
	for _, row := range rows {
		modes[row.MemberID] = row.Mode
	}

	snapshot := entities.EligibleSnapshot{TotalWeight: decimal.Zero}
	for memberID, mode := range modes {
		if !attending(mode, countRemote) {
			continue
		}
		member, err := directory.GetMember(ctx, memberID)
		if err != nil {
			return entities.EligibleSnapshot{}, err
		}
		if !member.Active {
			continue
		}
		snapshot.MemberCount++
		snapshot.TotalWeight = snapshot.TotalWeight.Add(member.VotingPower)
	}

	if !includeProxies {
		return snapshot, nil
	}

	proxies, err := attendance.ListActiveProxiesByMeeting(ctx, meetingID)
	if err != nil {
		return entities.EligibleSnapshot{}, err
	}
	for _, proxy := range proxies {
		if attending(modes[proxy.GiverID], countRemote) {
			// Giver turned up; the proxy is dormant and the giver is already
			// counted directly.
			continue
		}
		if !attending(modes[proxy.ReceiverID], countRemote) {
			continue
		}
		giver, err := directory.GetMember(ctx, proxy.GiverID)
		if err != nil {
			return entities.EligibleSnapshot{}, err
		}
		if !giver.Active {
			continue
		}
		snapshot.MemberCount++
		snapshot.TotalWeight = snapshot.TotalWeight.Add(giver.VotingPower)
	}
	return snapshot, nil
}

// canCastFor reports whether a ballot may be recorded under memberID: the
// member attends themself, or is an absent giver whose active proxy points at
// an attending receiver.
func canCastFor(
	ctx context.Context,
	attendance ports.AttendanceRepository,
	meetingID string,
	memberID string,
) (bool, error) {
	row, found, err := attendance.GetAttendance(ctx, meetingID, memberID)
	if err != nil {
		return false, err
	}
	if found && attending(row.Mode, true) {
		return true, nil
	}

	proxy, found, err := attendance.GetActiveProxyByGiver(ctx, meetingID, memberID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	receiver, found, err := attendance.GetAttendance(ctx, meetingID, proxy.ReceiverID)
	if err != nil {
		return false, err
	}
	return found && attending(receiver.Mode, true), nil
}

// eligibleVoterIDs lists every member id a ballot could legally be recorded
// for, in stable order. Used by the unanimity batch.
func eligibleVoterIDs(
	ctx context.Context,
	directory ports.MemberDirectory,
	attendance ports.AttendanceRepository,
	meetingID string,
) ([]string, error) {
	rows, err := attendance.ListAttendanceByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	modes := make(map[string]entities.AttendanceMode, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		modes[row.MemberID] = row.Mode
		if attending(row.Mode, true) {
			ids = append(ids, row.MemberID)
		}
	}

	proxies, err := attendance.ListActiveProxiesByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	for _, proxy := range proxies {
		if attending(modes[proxy.GiverID], true) {
			continue
		}
		if !attending(modes[proxy.ReceiverID], true) {
			continue
		}
		ids = append(ids, proxy.GiverID)
	}

	active := make([]string, 0, len(ids))
	for _, id := range ids {
		member, err := directory.GetMember(ctx, id)
		if err != nil {
			return nil, err
		}
		if member.Active {
			active = append(active, id)
		}
	}
	return active, nil
}
