package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type AttendanceMode string

const (
	AttendancePresent AttendanceMode = "present"
	AttendanceRemote  AttendanceMode = "remote"
	AttendanceAbsent  AttendanceMode = "absent"
)

func ParseAttendanceMode(raw string) (AttendanceMode, bool) {
	switch AttendanceMode(raw) {
	case AttendancePresent, AttendanceRemote, AttendanceAbsent:
		return AttendanceMode(raw), true
	default:
		return "", false
	}
}

// Attendance records one member's participation mode for one meeting.
// Upserted, never duplicated.
type Attendance struct {
	MeetingID string
	MemberID  string
	Mode      AttendanceMode
	UpdatedAt time.Time
}

// Proxy delegates the giver's voting weight to the receiver for one meeting.
// A giver holds at most one non-revoked proxy at a time. A proxy whose giver
// turns up present/remote goes dormant, it is not revoked.
type Proxy struct {
	MeetingID  string
	GiverID    string
	ReceiverID string
	GrantedAt  time.Time
	RevokedAt  *time.Time
}

func (p Proxy) IsActive() bool {
	return p.RevokedAt == nil
}

// Member is the read-only directory projection consumed by the session
// service. VotingPower is a non-negative decimal, not necessarily integral.
type Member struct {
	MemberID    string
	DisplayName string
	VotingPower decimal.Decimal
	Active      bool
}

// EligibleSnapshot is the denominator material for quorum/majority checks:
// head-count and summed weight of everyone entitled to vote at one instant.
type EligibleSnapshot struct {
	MemberCount int
	TotalWeight decimal.Decimal
}
