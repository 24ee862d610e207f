package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type BallotValue string

const (
	BallotFor     BallotValue = "for"
	BallotAgainst BallotValue = "against"
	BallotAbstain BallotValue = "abstain"
)

// ParseBallotValue rejects any value outside the enumerated set at the
// boundary instead of defaulting silently.
func ParseBallotValue(raw string) (BallotValue, bool) {
	switch BallotValue(raw) {
	case BallotFor, BallotAgainst, BallotAbstain:
		return BallotValue(raw), true
	default:
		return "", false
	}
}

type BallotSource string

const (
	BallotSourceDirect BallotSource = "direct"
	BallotSourceManual BallotSource = "manual"
)

// Ballot is one member's recorded choice for one motion, unique per
// (motion_id, member_id). A later cast for the same pair overwrites the row.
// Weight is the member's voting power snapshotted at cast time.
type Ballot struct {
	MotionID      string
	MemberID      string
	Value         BallotValue
	Source        BallotSource
	Weight        decimal.Decimal
	Justification string
	CastAt        time.Time
}
