package ports

import (
	"context"
	"encoding/json"
	"time"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
)

type MeetingRepository interface {
	SaveMeeting(ctx context.Context, meeting entities.Meeting) error
	GetMeeting(ctx context.Context, meetingID string) (entities.Meeting, error)
	// TransitionMeeting performs the per-meeting status change as a guarded
	// compare-and-set: it applies only while the status still equals from,
	// and, when requireNoOpenMotion is set, only while no motion is open at
	// commit time. Returns false when the guard fails.
	TransitionMeeting(
		ctx context.Context,
		meetingID string,
		from entities.MeetingStatus,
		to entities.MeetingStatus,
		requireNoOpenMotion bool,
		updatedAt time.Time,
	) (bool, error)
}

type MotionRepository interface {
	SaveMotion(ctx context.Context, motion entities.Motion) error
	GetMotion(ctx context.Context, motionID string) (entities.Motion, error)
	ListMotionsByMeeting(ctx context.Context, meetingID string) ([]entities.Motion, error)
	// OpenMotion atomically claims the meeting's open-motion slot for
	// motionID and stamps opened_at. Returns false when another motion
	// already holds the slot.
	OpenMotion(ctx context.Context, meetingID string, motionID string, openedAt time.Time) (bool, error)
	// CloseMotion atomically releases the slot held by motionID and persists
	// the terminal decision, reason, tallies and closed_at. Returns false
	// when motionID does not hold the slot.
	CloseMotion(
		ctx context.Context,
		meetingID string,
		motionID string,
		closedAt time.Time,
		decided entities.Decision,
		reason string,
		tallies entities.Tallies,
	) (bool, error)
	ReorderMotions(ctx context.Context, meetingID string, positions map[string]int, updatedAt time.Time) error
}

type BallotRepository interface {
	// UpsertBallot writes one row per (motion_id, member_id); a later cast
	// for the same pair overwrites, it never appends.
	UpsertBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, motionID string, memberID string) (entities.Ballot, bool, error)
	ListBallotsByMotion(ctx context.Context, motionID string) ([]entities.Ballot, error)
	DeleteBallot(ctx context.Context, motionID string, memberID string) (bool, error)
}

type AttendanceRepository interface {
	UpsertAttendance(ctx context.Context, attendance entities.Attendance) error
	GetAttendance(ctx context.Context, meetingID string, memberID string) (entities.Attendance, bool, error)
	ListAttendanceByMeeting(ctx context.Context, meetingID string) ([]entities.Attendance, error)
	SaveProxy(ctx context.Context, proxy entities.Proxy) error
	GetActiveProxyByGiver(ctx context.Context, meetingID string, giverID string) (entities.Proxy, bool, error)
	ListActiveProxiesByMeeting(ctx context.Context, meetingID string) ([]entities.Proxy, error)
	RevokeProxy(ctx context.Context, meetingID string, giverID string, revokedAt time.Time) (bool, error)
}

// MemberDirectory is the read-only member/weight lookup. Directory management
// lives outside this service.
type MemberDirectory interface {
	GetMember(ctx context.Context, memberID string) (entities.Member, error)
	ListMembers(ctx context.Context) ([]entities.Member, error)
}

// PolicyStore is the read-only lookup of immutable policy definitions.
type PolicyStore interface {
	GetQuorumPolicy(ctx context.Context, policyID string) (entities.QuorumPolicy, error)
	GetVotePolicy(ctx context.Context, policyID string) (entities.VotePolicy, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	EntityID    string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope is the versioned audit event shape appended to the outbox for
// every state-changing operation.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
