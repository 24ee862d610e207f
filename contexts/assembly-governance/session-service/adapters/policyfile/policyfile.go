// Package policyfile loads the immutable quorum and vote policy catalogue
// from a YAML file. Policies are versioned and never edited in place; a new
// version is a new entry, and meetings reference policies by id.
package policyfile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/ports"
)

type Store struct {
	quorum map[string]entities.QuorumPolicy
	vote   map[string]entities.VotePolicy
}

var _ ports.PolicyStore = (*Store)(nil)

type fileDocument struct {
	QuorumPolicies []quorumPolicyDoc `yaml:"quorum_policies"`
	VotePolicies   []votePolicyDoc   `yaml:"vote_policies"`
}

type quorumPolicyDoc struct {
	PolicyID          string `yaml:"policy_id"`
	Version           int    `yaml:"version"`
	Mode              string `yaml:"mode"`
	Denominator       string `yaml:"denominator"`
	Threshold         string `yaml:"threshold"`
	SecondThreshold   string `yaml:"second_threshold"`
	SecondDenominator string `yaml:"second_denominator"`
	IncludeProxies    *bool  `yaml:"include_proxies"`
	CountRemote       *bool  `yaml:"count_remote"`
}

type votePolicyDoc struct {
	PolicyID            string `yaml:"policy_id"`
	Version             int    `yaml:"version"`
	Base                string `yaml:"base"`
	Threshold           string `yaml:"threshold"`
	AbstentionAsAgainst bool   `yaml:"abstention_as_against"`
}

func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policyfile: read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Store, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("policyfile: decode: %w", err)
	}

	store := &Store{
		quorum: make(map[string]entities.QuorumPolicy, len(doc.QuorumPolicies)),
		vote:   make(map[string]entities.VotePolicy, len(doc.VotePolicies)),
	}
	for _, entry := range doc.QuorumPolicies {
		policy, err := entry.toEntity()
		if err != nil {
			return nil, err
		}
		if _, exists := store.quorum[policy.PolicyID]; exists {
			return nil, fmt.Errorf("policyfile: duplicate quorum policy %q", policy.PolicyID)
		}
		store.quorum[policy.PolicyID] = policy
	}
	for _, entry := range doc.VotePolicies {
		policy, err := entry.toEntity()
		if err != nil {
			return nil, err
		}
		if _, exists := store.vote[policy.PolicyID]; exists {
			return nil, fmt.Errorf("policyfile: duplicate vote policy %q", policy.PolicyID)
		}
		store.vote[policy.PolicyID] = policy
	}
	return store, nil
}

func (s *Store) GetQuorumPolicy(_ context.Context, policyID string) (entities.QuorumPolicy, error) {
	policy, ok := s.quorum[strings.TrimSpace(policyID)]
	if !ok {
		return entities.QuorumPolicy{}, domainerrors.ErrPolicyNotFound
	}
	return policy, nil
}

func (s *Store) GetVotePolicy(_ context.Context, policyID string) (entities.VotePolicy, error) {
	policy, ok := s.vote[strings.TrimSpace(policyID)]
	if !ok {
		return entities.VotePolicy{}, domainerrors.ErrPolicyNotFound
	}
	return policy, nil
}

func (d quorumPolicyDoc) toEntity() (entities.QuorumPolicy, error) {
	policyID := strings.TrimSpace(d.PolicyID)
	if policyID == "" {
		return entities.QuorumPolicy{}, fmt.Errorf("policyfile: quorum policy with empty policy_id")
	}
	mode, ok := entities.ParseQuorumMode(strings.TrimSpace(d.Mode))
	if !ok {
		return entities.QuorumPolicy{}, fmt.Errorf("policyfile: quorum policy %q: unknown mode %q", policyID, d.Mode)
	}
	denominator, ok := entities.ParseQuorumDenominator(strings.TrimSpace(d.Denominator))
	if !ok {
		return entities.QuorumPolicy{}, fmt.Errorf("policyfile: quorum policy %q: unknown denominator %q", policyID, d.Denominator)
	}
	threshold, err := parseThreshold(policyID, d.Threshold)
	if err != nil {
		return entities.QuorumPolicy{}, err
	}

	policy := entities.QuorumPolicy{
		PolicyID:       policyID,
		Version:        d.Version,
		Mode:           mode,
		Denominator:    denominator,
		Threshold:      threshold,
		IncludeProxies: true,
		CountRemote:    true,
	}
	if d.IncludeProxies != nil {
		policy.IncludeProxies = *d.IncludeProxies
	}
	if d.CountRemote != nil {
		policy.CountRemote = *d.CountRemote
	}
	if strings.TrimSpace(d.SecondThreshold) != "" {
		second, err := parseThreshold(policyID, d.SecondThreshold)
		if err != nil {
			return entities.QuorumPolicy{}, err
		}
		policy.SecondThreshold = &second
	}
	if strings.TrimSpace(d.SecondDenominator) != "" {
		secondDenominator, ok := entities.ParseQuorumDenominator(strings.TrimSpace(d.SecondDenominator))
		if !ok {
			return entities.QuorumPolicy{}, fmt.Errorf(
				"policyfile: quorum policy %q: unknown second_denominator %q", policyID, d.SecondDenominator)
		}
		policy.SecondDenominator = secondDenominator
	} else {
		policy.SecondDenominator = denominator
	}
	if mode != entities.QuorumModeSingle && policy.SecondThreshold == nil {
		return entities.QuorumPolicy{}, fmt.Errorf(
			"policyfile: quorum policy %q: mode %q requires second_threshold", policyID, string(mode))
	}
	return policy, nil
}

func (d votePolicyDoc) toEntity() (entities.VotePolicy, error) {
	policyID := strings.TrimSpace(d.PolicyID)
	if policyID == "" {
		return entities.VotePolicy{}, fmt.Errorf("policyfile: vote policy with empty policy_id")
	}
	base, ok := entities.ParseVoteBase(strings.TrimSpace(d.Base))
	if !ok {
		return entities.VotePolicy{}, fmt.Errorf("policyfile: vote policy %q: unknown base %q", policyID, d.Base)
	}
	threshold, err := parseThreshold(policyID, d.Threshold)
	if err != nil {
		return entities.VotePolicy{}, err
	}
	return entities.VotePolicy{
		PolicyID:            policyID,
		Version:             d.Version,
		Base:                base,
		Threshold:           threshold,
		AbstentionAsAgainst: d.AbstentionAsAgainst,
	}, nil
}

// parseThreshold keeps thresholds as decimal strings in the file so ratios
// like "0.5" survive exactly.
func parseThreshold(policyID string, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("policyfile: policy %q: invalid threshold %q", policyID, raw)
	}
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, fmt.Errorf("policyfile: policy %q: threshold %q out of [0,1]", policyID, raw)
	}
	return value, nil
}
