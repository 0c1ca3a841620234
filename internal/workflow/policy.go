package workflow

import "github.com/servcore/helpdesk/internal/domain"

// CanView reports whether the actor may see the ticket at all.
// Admins see everything, agents see unassigned tickets plus their own
// assignments, users see only tickets they created.
func CanView(actor *domain.User, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		return ticket.AssigneeID == nil || *ticket.AssigneeID == actor.ID
	default:
		return ticket.CreatorID == actor.ID
	}
}

// CanTransitionTo reports whether the actor's role permits requesting the
// given target status for the ticket via the generic transition path.
//
// Agents may move self-assigned tickets to IN_PROGRESS or RESOLVED. Admins'
// only direct transition power is reopening: IN_PROGRESS from RESOLVED or
// CLOSED. Users never use this path; they close and reopen through the
// dedicated owner operations.
func CanTransitionTo(actor *domain.User, ticket *domain.Ticket, target domain.TicketStatus) bool {
	switch actor.Role {
	case domain.RoleAgent:
		if ticket.AssigneeID == nil || *ticket.AssigneeID != actor.ID {
			return false
		}
		return target == domain.TicketStatusInProgress || target == domain.TicketStatusResolved
	case domain.RoleAdmin:
		if target != domain.TicketStatusInProgress {
			return false
		}
		return ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed
	default:
		return false
	}
}

// CanCloseOrReopen reports whether the actor may use the dedicated close or
// reopen actions: ticket creator or admin, and only while the ticket is
// RESOLVED.
func CanCloseOrReopen(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket.Status != domain.TicketStatusResolved {
		return false
	}
	return actor.IsAdmin() || ticket.CreatorID == actor.ID
}

// CanEdit reports whether the actor may modify the ticket's fields or soft
// delete it: creator only, and only while the ticket is OPEN and unassigned.
func CanEdit(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket.CreatorID != actor.ID {
		return false
	}
	return ticket.Status == domain.TicketStatusOpen && ticket.AssigneeID == nil
}
