// Package lifecycle holds the meeting state machine: which status moves are
// legal, which roles may request them, and which moves carry a hard
// precondition on open motions.
package lifecycle

import (
	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
)

// Rule describes one legal transition.
type Rule struct {
	From entities.MeetingStatus
	To   entities.MeetingStatus
	// Roles allowed to request the transition.
	Roles []entities.ActorRole
	// RequiresNoOpenMotion marks live→closed, the one precondition enforced
	// here rather than left to the caller. The repository re-checks it inside
	// the commit critical section.
	RequiresNoOpenMotion bool
	// Correction flags the backward operator-correction moves.
	Correction bool
}

var rules = []Rule{
	{From: entities.MeetingStatusDraft, To: entities.MeetingStatusScheduled, Roles: []entities.ActorRole{entities.RoleOperator, entities.RoleAdmin}},
	{From: entities.MeetingStatusScheduled, To: entities.MeetingStatusDraft, Roles: []entities.ActorRole{entities.RoleOperator, entities.RoleAdmin}, Correction: true},
	{From: entities.MeetingStatusScheduled, To: entities.MeetingStatusFrozen, Roles: []entities.ActorRole{entities.RoleOperator, entities.RoleAdmin}},
	{From: entities.MeetingStatusFrozen, To: entities.MeetingStatusScheduled, Roles: []entities.ActorRole{entities.RoleOperator, entities.RoleAdmin}, Correction: true},
	{From: entities.MeetingStatusFrozen, To: entities.MeetingStatusLive, Roles: []entities.ActorRole{entities.RolePresident, entities.RoleAdmin}},
	{From: entities.MeetingStatusLive, To: entities.MeetingStatusPaused, Roles: []entities.ActorRole{entities.RolePresident, entities.RoleOperator, entities.RoleAdmin}},
	{From: entities.MeetingStatusPaused, To: entities.MeetingStatusLive, Roles: []entities.ActorRole{entities.RolePresident, entities.RoleOperator, entities.RoleAdmin}},
	{From: entities.MeetingStatusLive, To: entities.MeetingStatusClosed, Roles: []entities.ActorRole{entities.RolePresident, entities.RoleAdmin}, RequiresNoOpenMotion: true},
	{From: entities.MeetingStatusClosed, To: entities.MeetingStatusValidated, Roles: []entities.ActorRole{entities.RolePresident, entities.RoleAdmin}},
	{From: entities.MeetingStatusValidated, To: entities.MeetingStatusArchived, Roles: []entities.ActorRole{entities.RoleOperator, entities.RoleAdmin}},
	{From: entities.MeetingStatusArchived, To: entities.MeetingStatusValidated, Roles: []entities.ActorRole{entities.RoleAdmin}, Correction: true},
}

// CanTransition returns the matching rule, ErrInvalidTransition when no rule
// connects the statuses, or ErrForbidden when the rule exists but the actor
// role is not on it.
func CanTransition(
	from entities.MeetingStatus,
	to entities.MeetingStatus,
	role entities.ActorRole,
) (Rule, error) {
	for _, rule := range rules {
		if rule.From != from || rule.To != to {
			continue
		}
		for _, allowed := range rule.Roles {
			if allowed == role {
				return rule, nil
			}
		}
		return Rule{}, domainerrors.ErrForbidden
	}
	return Rule{}, domainerrors.ErrInvalidTransition
}

// AcceptsMotions reports whether new motions may still be created.
func AcceptsMotions(status entities.MeetingStatus) bool {
	switch status {
	case entities.MeetingStatusDraft,
		entities.MeetingStatusScheduled,
		entities.MeetingStatusFrozen,
		entities.MeetingStatusLive:
		return true
	default:
		return false
	}
}
