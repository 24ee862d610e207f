package entities

import "github.com/shopspring/decimal"

type QuorumMode string

const (
	QuorumModeSingle   QuorumMode = "single"
	QuorumModeEvolving QuorumMode = "evolving"
	QuorumModeDouble   QuorumMode = "double"
)

func ParseQuorumMode(raw string) (QuorumMode, bool) {
	switch QuorumMode(raw) {
	case QuorumModeSingle, QuorumModeEvolving, QuorumModeDouble:
		return QuorumMode(raw), true
	default:
		return "", false
	}
}

type QuorumDenominator string

const (
	DenominatorEligibleMembers QuorumDenominator = "eligible_members"
	DenominatorEligibleWeight  QuorumDenominator = "eligible_weight"
)

func ParseQuorumDenominator(raw string) (QuorumDenominator, bool) {
	switch QuorumDenominator(raw) {
	case DenominatorEligibleMembers, DenominatorEligibleWeight:
		return QuorumDenominator(raw), true
	default:
		return "", false
	}
}

// QuorumPolicy is an immutable, versioned participation rule. Thresholds live
// in [0,1]. The second-call fields apply to double mode (fallback when the
// first call is unmet) and to evolving mode (selected by the meeting's
// convocation number).
type QuorumPolicy struct {
	PolicyID          string
	Version           int
	Mode              QuorumMode
	Denominator       QuorumDenominator
	Threshold         decimal.Decimal
	SecondThreshold   *decimal.Decimal
	SecondDenominator QuorumDenominator
	IncludeProxies    bool
	CountRemote       bool
}

type VoteBase string

const (
	VoteBaseExpressed     VoteBase = "expressed"
	VoteBaseTotalEligible VoteBase = "total_eligible"
)

func ParseVoteBase(raw string) (VoteBase, bool) {
	switch VoteBase(raw) {
	case VoteBaseExpressed, VoteBaseTotalEligible:
		return VoteBase(raw), true
	default:
		return "", false
	}
}

// VotePolicy is an immutable, versioned majority rule.
type VotePolicy struct {
	PolicyID            string
	Version             int
	Base                VoteBase
	Threshold           decimal.Decimal
	AbstentionAsAgainst bool
}
