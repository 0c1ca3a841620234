// Package workflow holds the fixed ticket state machine and the role-based
// access rules. Everything here is a pure function so the lifecycle and
// arbitration services can share one source of truth.
package workflow

import "github.com/servcore/helpdesk/internal/domain"

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

// IsValidTransition reports whether the directed edge current -> target
// exists in the transition table. CLOSED has no outgoing edges; callers
// that must reject every mutation of a CLOSED ticket (not just status
// changes) enforce that separately before consulting the table.
func IsValidTransition(current, target domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == target {
			return true
		}
	}
	return false
}
