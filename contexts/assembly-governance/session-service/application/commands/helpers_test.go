package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"plenum/contexts/assembly-governance/session-service/adapters/memory"
	"plenum/contexts/assembly-governance/session-service/domain/entities"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID(context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("id-%04d", g.n), nil
}

var testTime = time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	clock fixedClock
	idGen *seqIDGen
}

func newFixture() *fixture {
	return &fixture{
		store: memory.NewStore(),
		clock: fixedClock{now: testTime},
		idGen: &seqIDGen{},
	}
}

func (f *fixture) meetings() MeetingUseCase {
	return MeetingUseCase{
		Meetings: f.store,
		Motions:  f.store,
		Outbox:   f.store,
		Clock:    f.clock,
		IDGen:    f.idGen,
	}
}

func (f *fixture) motions() MotionUseCase {
	return MotionUseCase{
		Meetings:   f.store,
		Motions:    f.store,
		Ballots:    f.store,
		Attendance: f.store,
		Directory:  f.store,
		Policies:   f.store,
		Outbox:     f.store,
		Clock:      f.clock,
		IDGen:      f.idGen,
	}
}

func (f *fixture) ballots() BallotUseCase {
	return BallotUseCase{
		Motions:     f.store,
		Ballots:     f.store,
		Attendance:  f.store,
		Directory:   f.store,
		Idempotency: f.store,
		Outbox:      f.store,
		Clock:       f.clock,
		IDGen:       f.idGen,
	}
}

func (f *fixture) attendance() AttendanceUseCase {
	return AttendanceUseCase{
		Meetings:   f.store,
		Attendance: f.store,
		Directory:  f.store,
		Outbox:     f.store,
		Clock:      f.clock,
		IDGen:      f.idGen,
	}
}

func (f *fixture) seedMember(memberID string, power string) {
	f.store.SetMember(entities.Member{
		MemberID:    memberID,
		DisplayName: memberID,
		VotingPower: decimal.RequireFromString(power),
		Active:      true,
	})
}

func (f *fixture) seedDefaultPolicies() {
	f.store.SetQuorumPolicy(entities.QuorumPolicy{
		PolicyID:       "quorum-half",
		Version:        1,
		Mode:           entities.QuorumModeSingle,
		Denominator:    entities.DenominatorEligibleMembers,
		Threshold:      decimal.RequireFromString("0.5"),
		IncludeProxies: true,
		CountRemote:    true,
	})
	f.store.SetVotePolicy(entities.VotePolicy{
		PolicyID:  "vote-simple",
		Version:   1,
		Base:      entities.VoteBaseExpressed,
		Threshold: decimal.RequireFromString("0.5"),
	})
}

// liveMeeting drives a fresh meeting through draft->scheduled->frozen->live.
func (f *fixture) liveMeeting(ctx context.Context) entities.Meeting {
	meeting, err := f.meetings().CreateMeeting(ctx, CreateMeetingCommand{
		Title:          "ordinary assembly",
		QuorumPolicyID: "quorum-half",
		VotePolicyID:   "vote-simple",
	})
	if err != nil {
		panic(err)
	}
	for _, to := range []entities.MeetingStatus{
		entities.MeetingStatusScheduled,
		entities.MeetingStatusFrozen,
		entities.MeetingStatusLive,
	} {
		result, err := f.meetings().Transition(ctx, TransitionMeetingCommand{
			MeetingID: meeting.MeetingID,
			ToStatus:  string(to),
			ActorRole: string(entities.RoleAdmin),
		})
		if err != nil {
			panic(err)
		}
		meeting = result.Meeting
	}
	return meeting
}

func (f *fixture) openMotion(ctx context.Context, meetingID string) entities.Motion {
	motion, err := f.motions().CreateMotion(ctx, CreateMotionCommand{
		MeetingID: meetingID,
		Title:     "approve the annual budget",
	})
	if err != nil {
		panic(err)
	}
	if err := f.motions().OpenMotion(ctx, meetingID, motion.MotionID); err != nil {
		panic(err)
	}
	motion, err = f.store.GetMotion(ctx, motion.MotionID)
	if err != nil {
		panic(err)
	}
	return motion
}

func (f *fixture) markPresent(ctx context.Context, meetingID string, memberIDs ...string) {
	for _, memberID := range memberIDs {
		if _, err := f.attendance().SetAttendance(ctx, SetAttendanceCommand{
			MeetingID: meetingID,
			MemberID:  memberID,
			Mode:      string(entities.AttendancePresent),
		}); err != nil {
			panic(err)
		}
	}
}
