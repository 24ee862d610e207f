package entities

import "time"

type MeetingStatus string

const (
	MeetingStatusDraft     MeetingStatus = "draft"
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusFrozen    MeetingStatus = "frozen"
	MeetingStatusLive      MeetingStatus = "live"
	MeetingStatusPaused    MeetingStatus = "paused"
	MeetingStatusClosed    MeetingStatus = "closed"
	MeetingStatusValidated MeetingStatus = "validated"
	MeetingStatusArchived  MeetingStatus = "archived"
)

// ParseMeetingStatus rejects values outside the closed status set.
func ParseMeetingStatus(raw string) (MeetingStatus, bool) {
	switch MeetingStatus(raw) {
	case MeetingStatusDraft,
		MeetingStatusScheduled,
		MeetingStatusFrozen,
		MeetingStatusLive,
		MeetingStatusPaused,
		MeetingStatusClosed,
		MeetingStatusValidated,
		MeetingStatusArchived:
		return MeetingStatus(raw), true
	default:
		return "", false
	}
}

type ActorRole string

const (
	RolePresident ActorRole = "president"
	RoleOperator  ActorRole = "operator"
	RoleAdmin     ActorRole = "admin"
)

func ParseActorRole(raw string) (ActorRole, bool) {
	switch ActorRole(raw) {
	case RolePresident, RoleOperator, RoleAdmin:
		return ActorRole(raw), true
	default:
		return "", false
	}
}

// Meeting is the aggregate root for one convened session. OpenMotionID is the
// single source of truth for the "at most one open motion" invariant; it is
// mutated only through guarded repository updates, never inferred by scanning
// motions.
type Meeting struct {
	MeetingID      string
	Title          string
	Status         MeetingStatus
	ConvocationNo  int
	QuorumPolicyID string
	VotePolicyID   string
	OpenMotionID   string
	OpenedAt       *time.Time
	ClosedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
