package policyfile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
)

const validDocument = `
quorum_policies:
  - policy_id: quorum-half
    version: 1
    mode: single
    denominator: eligible_members
    threshold: "0.5"
  - policy_id: quorum-evolving
    version: 2
    mode: evolving
    denominator: eligible_weight
    threshold: "0.5"
    second_threshold: "0.25"
    count_remote: false
vote_policies:
  - policy_id: vote-simple
    version: 1
    base: expressed
    threshold: "0.5"
  - policy_id: vote-strict
    version: 1
    base: total_eligible
    threshold: "0.66"
    abstention_as_against: true
`

func TestParseValidDocument(t *testing.T) {
	ctx := context.Background()
	store, err := Parse([]byte(validDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	half, err := store.GetQuorumPolicy(ctx, "quorum-half")
	if err != nil {
		t.Fatalf("GetQuorumPolicy failed: %v", err)
	}
	if half.Mode != entities.QuorumModeSingle || !half.Threshold.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("unexpected policy: %+v", half)
	}
	if !half.IncludeProxies || !half.CountRemote {
		t.Fatalf("expected include_proxies and count_remote to default true, got %+v", half)
	}

	evolving, err := store.GetQuorumPolicy(ctx, "quorum-evolving")
	if err != nil {
		t.Fatalf("GetQuorumPolicy failed: %v", err)
	}
	if evolving.SecondThreshold == nil || !evolving.SecondThreshold.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("expected second_threshold 0.25, got %+v", evolving.SecondThreshold)
	}
	if evolving.SecondDenominator != entities.DenominatorEligibleWeight {
		t.Fatalf("expected second_denominator to default to the first, got %s", evolving.SecondDenominator)
	}
	if evolving.CountRemote {
		t.Fatal("expected count_remote=false to be honored")
	}

	strict, err := store.GetVotePolicy(ctx, "vote-strict")
	if err != nil {
		t.Fatalf("GetVotePolicy failed: %v", err)
	}
	if strict.Base != entities.VoteBaseTotalEligible || !strict.AbstentionAsAgainst {
		t.Fatalf("unexpected policy: %+v", strict)
	}
}

func TestParseRejectsThresholdOutOfRange(t *testing.T) {
	_, err := Parse([]byte(`
quorum_policies:
  - policy_id: quorum-bad
    mode: single
    denominator: eligible_members
    threshold: "1.5"
`))
	if err == nil {
		t.Fatal("expected an error for a threshold above 1")
	}
}

func TestParseRejectsNonDecimalThreshold(t *testing.T) {
	_, err := Parse([]byte(`
vote_policies:
  - policy_id: vote-bad
    base: expressed
    threshold: "half"
`))
	if err == nil {
		t.Fatal("expected an error for a non-decimal threshold")
	}
}

func TestParseRequiresSecondThresholdForEvolving(t *testing.T) {
	_, err := Parse([]byte(`
quorum_policies:
  - policy_id: quorum-evolving
    mode: evolving
    denominator: eligible_members
    threshold: "0.5"
`))
	if err == nil {
		t.Fatal("expected an error for evolving mode without second_threshold")
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	_, err := Parse([]byte(`
vote_policies:
  - policy_id: vote-simple
    base: expressed
    threshold: "0.5"
  - policy_id: vote-simple
    base: expressed
    threshold: "0.6"
`))
	if err == nil {
		t.Fatal("expected an error for a duplicate policy id")
	}
}

func TestLookupUnknownPolicy(t *testing.T) {
	ctx := context.Background()
	store, err := Parse([]byte(validDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := store.GetQuorumPolicy(ctx, "missing"); !errors.Is(err, domainerrors.ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
	if _, err := store.GetVotePolicy(ctx, "missing"); !errors.Is(err, domainerrors.ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}
