// Package decision evaluates quorum and majority policies for a closed ballot
// set. Decide is a pure function: identical inputs always yield the identical
// decision and tallies, so closed motions can be replayed for audits.
package decision

import (
	"github.com/shopspring/decimal"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
)

const (
	ReasonNoBallotsCast         = "no_ballots_cast"
	ReasonNoPolicyAttached      = "no_policy_attached"
	ReasonQuorumNotMet          = "quorum_not_met"
	ReasonQuorumNotMetBothCalls = "quorum_not_met_both_calls"
	ReasonMajorityMet           = "majority_threshold_met"
	ReasonMajorityNotMet        = "majority_threshold_not_met"
	ReasonNoExpressedVotes      = "no_expressed_votes"
)

// Input is the full snapshot Decide works from; the engine itself performs
// no I/O. Roster is the full active membership and is the quorum denominator:
// participation is measured against everyone who could have turned up, not
// against whoever did. Eligible is the attendance+proxy snapshot computed with
// the quorum policy's include_proxies/count_remote flags; it serves as the
// majority total_eligible base.
type Input struct {
	Ballots       []entities.Ballot
	Roster        entities.EligibleSnapshot
	Eligible      entities.EligibleSnapshot
	ConvocationNo int
	Quorum        *entities.QuorumPolicy
	Vote          *entities.VotePolicy
}

type Result struct {
	Decision entities.Decision
	Reason   string
	Tallies  entities.Tallies
	// Participating counts every member who cast any ballot; abstain counts
	// as participating for quorum, never for majority.
	Participating entities.EligibleSnapshot
}

// Decide applies, in order: the no-votes rule, the quorum gate, the no-policy
// rule, then the majority rule. Threshold comparisons are exact decimal
// cross-multiplications (num ≥ threshold·den), so equality at a boundary like
// 50% counts as met.
func Decide(in Input) Result {
	tallies := Tally(in.Ballots)
	participating := entities.EligibleSnapshot{
		MemberCount: tallies.VotesCast(),
		TotalWeight: tallies.WeightFor.Add(tallies.WeightAgainst).Add(tallies.WeightAbstain),
	}
	result := Result{Tallies: tallies, Participating: participating}

	if len(in.Ballots) == 0 {
		result.Decision = entities.DecisionNoVotes
		result.Reason = ReasonNoBallotsCast
		return result
	}

	if in.Quorum != nil {
		if met, reason := quorumMet(*in.Quorum, participating, in.Roster, in.ConvocationNo); !met {
			result.Decision = entities.DecisionNoQuorum
			result.Reason = reason
			return result
		}
	}

	if in.Vote == nil {
		result.Decision = entities.DecisionNoPolicy
		result.Reason = ReasonNoPolicyAttached
		return result
	}

	decided, reason := majority(*in.Vote, tallies, in.Eligible)
	result.Decision = decided
	result.Reason = reason
	return result
}

// Tally folds a ballot set into weight-summed tallies.
func Tally(ballots []entities.Ballot) entities.Tallies {
	tallies := entities.ZeroTallies()
	for _, ballot := range ballots {
		switch ballot.Value {
		case entities.BallotFor:
			tallies.VotesFor++
			tallies.WeightFor = tallies.WeightFor.Add(ballot.Weight)
		case entities.BallotAgainst:
			tallies.VotesAgainst++
			tallies.WeightAgainst = tallies.WeightAgainst.Add(ballot.Weight)
		case entities.BallotAbstain:
			tallies.VotesAbstain++
			tallies.WeightAbstain = tallies.WeightAbstain.Add(ballot.Weight)
		}
	}
	return tallies
}

func quorumMet(
	policy entities.QuorumPolicy,
	participating entities.EligibleSnapshot,
	roster entities.EligibleSnapshot,
	convocationNo int,
) (bool, string) {
	firstMet := ratioMeets(policy.Threshold, policy.Denominator, participating, roster)

	switch policy.Mode {
	case entities.QuorumModeEvolving:
		// The convocation number recorded on the meeting selects the call:
		// first convocation uses the first threshold, later ones the second.
		if convocationNo >= 2 && policy.SecondThreshold != nil {
			if ratioMeets(*policy.SecondThreshold, secondDenominator(policy), participating, roster) {
				return true, ""
			}
			return false, ReasonQuorumNotMet
		}
		if firstMet {
			return true, ""
		}
		return false, ReasonQuorumNotMet
	case entities.QuorumModeDouble:
		if firstMet {
			return true, ""
		}
		if policy.SecondThreshold != nil &&
			ratioMeets(*policy.SecondThreshold, secondDenominator(policy), participating, roster) {
			return true, ""
		}
		return false, ReasonQuorumNotMetBothCalls
	default:
		if firstMet {
			return true, ""
		}
		return false, ReasonQuorumNotMet
	}
}

func secondDenominator(policy entities.QuorumPolicy) entities.QuorumDenominator {
	if policy.SecondDenominator != "" {
		return policy.SecondDenominator
	}
	return policy.Denominator
}

// ratioMeets evaluates num/den ≥ threshold as num ≥ threshold·den, which is
// exact for decimals. An empty denominator never meets a positive threshold.
func ratioMeets(
	threshold decimal.Decimal,
	denominator entities.QuorumDenominator,
	participating entities.EligibleSnapshot,
	roster entities.EligibleSnapshot,
) bool {
	var num, den decimal.Decimal
	if denominator == entities.DenominatorEligibleWeight {
		num = participating.TotalWeight
		den = roster.TotalWeight
	} else {
		num = decimal.NewFromInt(int64(participating.MemberCount))
		den = decimal.NewFromInt(int64(roster.MemberCount))
	}
	if den.Sign() <= 0 {
		return threshold.Sign() <= 0
	}
	return num.Cmp(threshold.Mul(den)) >= 0
}

func majority(
	policy entities.VotePolicy,
	tallies entities.Tallies,
	eligible entities.EligibleSnapshot,
) (entities.Decision, string) {
	forWeight := tallies.WeightFor
	againstWeight := tallies.WeightAgainst
	if policy.AbstentionAsAgainst {
		againstWeight = againstWeight.Add(tallies.WeightAbstain)
	}

	var base decimal.Decimal
	if policy.Base == entities.VoteBaseTotalEligible {
		base = eligible.TotalWeight
	} else {
		base = forWeight.Add(againstWeight)
	}
	if base.Sign() <= 0 {
		return entities.DecisionRejected, ReasonNoExpressedVotes
	}
	if forWeight.Cmp(policy.Threshold.Mul(base)) >= 0 {
		return entities.DecisionAdopted, ReasonMajorityMet
	}
	return entities.DecisionRejected, ReasonMajorityNotMet
}
