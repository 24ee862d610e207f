package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Decision string

const (
	DecisionAdopted  Decision = "adopted"
	DecisionRejected Decision = "rejected"
	DecisionNoQuorum Decision = "no_quorum"
	DecisionNoVotes  Decision = "no_votes"
	DecisionNoPolicy Decision = "no_policy"
)

// Tallies are the weight-summed outcome of one motion's ballot set. Weights
// use exact decimals so a threshold comparison at exactly 50% never flakes.
type Tallies struct {
	VotesFor      int
	VotesAgainst  int
	VotesAbstain  int
	WeightFor     decimal.Decimal
	WeightAgainst decimal.Decimal
	WeightAbstain decimal.Decimal
}

func ZeroTallies() Tallies {
	return Tallies{
		WeightFor:     decimal.Zero,
		WeightAgainst: decimal.Zero,
		WeightAbstain: decimal.Zero,
	}
}

func (t Tallies) VotesCast() int {
	return t.VotesFor + t.VotesAgainst + t.VotesAbstain
}

// Motion is one resolution within a meeting. A closed motion's decision,
// reason and tallies are terminal; no code path rewrites them.
type Motion struct {
	MotionID       string
	MeetingID      string
	Position       int
	Title          string
	Description    string
	Secret         bool
	OpenedAt       *time.Time
	ClosedAt       *time.Time
	Decision       Decision
	DecisionReason string
	Tallies        Tallies
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (m Motion) IsOpen() bool {
	return m.OpenedAt != nil && m.ClosedAt == nil
}

func (m Motion) IsClosed() bool {
	return m.ClosedAt != nil
}
