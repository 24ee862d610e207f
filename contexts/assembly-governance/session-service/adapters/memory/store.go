package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/ports"
)

// Store is the in-memory implementation of every session-service port. One
// mutex guards all maps, which also gives the per-meeting write serialization
// the compare-and-set methods rely on.
type Store struct {
	mu sync.RWMutex

	meetings    map[string]entities.Meeting
	motions     map[string]entities.Motion
	ballots     map[string]map[string]entities.Ballot
	attendance  map[string]map[string]entities.Attendance
	proxies     map[string][]entities.Proxy
	members     map[string]entities.Member
	quorum      map[string]entities.QuorumPolicy
	vote        map[string]entities.VotePolicy
	idempotency map[string]ports.IdempotencyRecord
	outbox      []outboxRow
}

type outboxRow struct {
	message   ports.OutboxMessage
	published bool
}

func NewStore() *Store {
	return &Store{
		meetings:    make(map[string]entities.Meeting),
		motions:     make(map[string]entities.Motion),
		ballots:     make(map[string]map[string]entities.Ballot),
		attendance:  make(map[string]map[string]entities.Attendance),
		proxies:     make(map[string][]entities.Proxy),
		members:     make(map[string]entities.Member),
		quorum:      make(map[string]entities.QuorumPolicy),
		vote:        make(map[string]entities.VotePolicy),
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
}

var (
	_ ports.MeetingRepository    = (*Store)(nil)
	_ ports.MotionRepository     = (*Store)(nil)
	_ ports.BallotRepository     = (*Store)(nil)
	_ ports.AttendanceRepository = (*Store)(nil)
	_ ports.MemberDirectory      = (*Store)(nil)
	_ ports.PolicyStore          = (*Store)(nil)
	_ ports.IdempotencyStore     = (*Store)(nil)
	_ ports.OutboxWriter         = (*Store)(nil)
	_ ports.OutboxRepository     = (*Store)(nil)
)

func (s *Store) SaveMeeting(_ context.Context, meeting entities.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[meeting.MeetingID] = meeting
	return nil
}

func (s *Store) GetMeeting(_ context.Context, meetingID string) (entities.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meeting, ok := s.meetings[meetingID]
	if !ok {
		return entities.Meeting{}, domainerrors.ErrMeetingNotFound
	}
	return meeting, nil
}

func (s *Store) TransitionMeeting(
	_ context.Context,
	meetingID string,
	from entities.MeetingStatus,
	to entities.MeetingStatus,
	requireNoOpenMotion bool,
	updatedAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meeting, ok := s.meetings[meetingID]
	if !ok {
		return false, domainerrors.ErrMeetingNotFound
	}
	if meeting.Status != from {
		return false, nil
	}
	if requireNoOpenMotion && meeting.OpenMotionID != "" {
		return false, nil
	}
	meeting.Status = to
	meeting.UpdatedAt = updatedAt
	switch to {
	case entities.MeetingStatusLive:
		if meeting.OpenedAt == nil {
			openedAt := updatedAt
			meeting.OpenedAt = &openedAt
		}
	case entities.MeetingStatusClosed:
		closedAt := updatedAt
		meeting.ClosedAt = &closedAt
	}
	s.meetings[meetingID] = meeting
	return true, nil
}

func (s *Store) SaveMotion(_ context.Context, motion entities.Motion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motions[motion.MotionID] = motion
	return nil
}

func (s *Store) GetMotion(_ context.Context, motionID string) (entities.Motion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	motion, ok := s.motions[motionID]
	if !ok {
		return entities.Motion{}, domainerrors.ErrMotionNotFound
	}
	return motion, nil
}

func (s *Store) ListMotionsByMeeting(_ context.Context, meetingID string) ([]entities.Motion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	motions := make([]entities.Motion, 0)
	for _, motion := range s.motions {
		if motion.MeetingID == meetingID {
			motions = append(motions, motion)
		}
	}
	sort.Slice(motions, func(i, j int) bool {
		return motions[i].Position < motions[j].Position
	})
	return motions, nil
}

func (s *Store) OpenMotion(_ context.Context, meetingID string, motionID string, openedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meeting, ok := s.meetings[meetingID]
	if !ok {
		return false, domainerrors.ErrMeetingNotFound
	}
	motion, ok := s.motions[motionID]
	if !ok {
		return false, domainerrors.ErrMotionNotFound
	}
	if meeting.OpenMotionID != "" {
		return false, nil
	}
	if motion.OpenedAt != nil {
		return false, nil
	}
	meeting.OpenMotionID = motionID
	meeting.UpdatedAt = openedAt
	stamp := openedAt
	motion.OpenedAt = &stamp
	motion.UpdatedAt = openedAt
	s.meetings[meetingID] = meeting
	s.motions[motionID] = motion
	return true, nil
}

func (s *Store) CloseMotion(
	_ context.Context,
	meetingID string,
	motionID string,
	closedAt time.Time,
	decided entities.Decision,
	reason string,
	tallies entities.Tallies,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meeting, ok := s.meetings[meetingID]
	if !ok {
		return false, domainerrors.ErrMeetingNotFound
	}
	motion, ok := s.motions[motionID]
	if !ok {
		return false, domainerrors.ErrMotionNotFound
	}
	if meeting.OpenMotionID != motionID {
		return false, nil
	}
	meeting.OpenMotionID = ""
	meeting.UpdatedAt = closedAt
	stamp := closedAt
	motion.ClosedAt = &stamp
	motion.UpdatedAt = closedAt
	motion.Decision = decided
	motion.DecisionReason = reason
	motion.Tallies = tallies
	s.meetings[meetingID] = meeting
	s.motions[motionID] = motion
	return true, nil
}

func (s *Store) ReorderMotions(_ context.Context, meetingID string, positions map[string]int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for motionID, position := range positions {
		motion, ok := s.motions[motionID]
		if !ok || motion.MeetingID != meetingID {
			return domainerrors.ErrMotionNotFound
		}
		motion.Position = position
		motion.UpdatedAt = updatedAt
		s.motions[motionID] = motion
	}
	return nil
}

func (s *Store) UpsertBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMember, ok := s.ballots[ballot.MotionID]
	if !ok {
		byMember = make(map[string]entities.Ballot)
		s.ballots[ballot.MotionID] = byMember
	}
	byMember[ballot.MemberID] = ballot
	return nil
}

func (s *Store) GetBallot(_ context.Context, motionID string, memberID string) (entities.Ballot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[motionID][memberID]
	return ballot, ok, nil
}

func (s *Store) ListBallotsByMotion(_ context.Context, motionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballots := make([]entities.Ballot, 0, len(s.ballots[motionID]))
	for _, ballot := range s.ballots[motionID] {
		ballots = append(ballots, ballot)
	}
	sort.Slice(ballots, func(i, j int) bool {
		return ballots[i].MemberID < ballots[j].MemberID
	})
	return ballots, nil
}

func (s *Store) DeleteBallot(_ context.Context, motionID string, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ballots[motionID][memberID]; !ok {
		return false, nil
	}
	delete(s.ballots[motionID], memberID)
	return true, nil
}

func (s *Store) UpsertAttendance(_ context.Context, attendance entities.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMember, ok := s.attendance[attendance.MeetingID]
	if !ok {
		byMember = make(map[string]entities.Attendance)
		s.attendance[attendance.MeetingID] = byMember
	}
	byMember[attendance.MemberID] = attendance
	return nil
}

func (s *Store) GetAttendance(_ context.Context, meetingID string, memberID string) (entities.Attendance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attendance, ok := s.attendance[meetingID][memberID]
	return attendance, ok, nil
}

func (s *Store) ListAttendanceByMeeting(_ context.Context, meetingID string) ([]entities.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]entities.Attendance, 0, len(s.attendance[meetingID]))
	for _, attendance := range s.attendance[meetingID] {
		rows = append(rows, attendance)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].MemberID < rows[j].MemberID
	})
	return rows, nil
}

func (s *Store) SaveProxy(_ context.Context, proxy entities.Proxy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proxies[proxy.MeetingID] = append(s.proxies[proxy.MeetingID], proxy)
	return nil
}

func (s *Store) GetActiveProxyByGiver(_ context.Context, meetingID string, giverID string) (entities.Proxy, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, proxy := range s.proxies[meetingID] {
		if proxy.GiverID == giverID && proxy.IsActive() {
			return proxy, true, nil
		}
	}
	return entities.Proxy{}, false, nil
}

func (s *Store) ListActiveProxiesByMeeting(_ context.Context, meetingID string) ([]entities.Proxy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make([]entities.Proxy, 0)
	for _, proxy := range s.proxies[meetingID] {
		if proxy.IsActive() {
			active = append(active, proxy)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].GiverID < active[j].GiverID
	})
	return active, nil
}

func (s *Store) RevokeProxy(_ context.Context, meetingID string, giverID string, revokedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := false
	rows := s.proxies[meetingID]
	for i := range rows {
		if rows[i].GiverID == giverID && rows[i].IsActive() {
			stamp := revokedAt
			rows[i].RevokedAt = &stamp
			revoked = true
		}
	}
	return revoked, nil
}

func (s *Store) GetMember(_ context.Context, memberID string) (entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[memberID]
	if !ok {
		return entities.Member{}, domainerrors.ErrMemberNotFound
	}
	return member, nil
}

func (s *Store) ListMembers(_ context.Context) ([]entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]entities.Member, 0, len(s.members))
	for _, member := range s.members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].MemberID < members[j].MemberID
	})
	return members, nil
}

func (s *Store) GetQuorumPolicy(_ context.Context, policyID string) (entities.QuorumPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.quorum[policyID]
	if !ok {
		return entities.QuorumPolicy{}, domainerrors.ErrPolicyNotFound
	}
	return policy, nil
}

func (s *Store) GetVotePolicy(_ context.Context, policyID string) (entities.VotePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.vote[policyID]
	if !ok {
		return entities.VotePolicy{}, domainerrors.ErrPolicyNotFound
	}
	return policy, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, outboxRow{
		message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt,
		},
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]ports.OutboxMessage, 0, limit)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		pending = append(pending, row.message)
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].published = true
			return nil
		}
	}
	return domainerrors.ErrInvalidInput
}

// SetMember seeds the member directory. Test and in-memory bootstrap helper.
func (s *Store) SetMember(member entities.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[member.MemberID] = member
}

func (s *Store) SetQuorumPolicy(policy entities.QuorumPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quorum[policy.PolicyID] = policy
}

func (s *Store) SetVotePolicy(policy entities.VotePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vote[policy.PolicyID] = policy
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

var (
	_ ports.Clock       = (*Store)(nil)
	_ ports.IDGenerator = (*Store)(nil)
)
