package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategory enumerates the departments a ticket can be filed under.
type TicketCategory string

const (
	TicketCategoryIT  TicketCategory = "IT"
	TicketCategoryHR  TicketCategory = "HR"
	TicketCategoryOps TicketCategory = "Ops"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case TicketCategoryIT, TicketCategoryHR, TicketCategoryOps:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// ResolvedAt is non-nil iff the ticket reached RESOLVED and has not been
// reopened since; AssigneeID is nil only while the ticket is OPEN.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	CreatorID   string
	AssigneeID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	DeletedAt   *time.Time
}

// Assigned reports whether the ticket currently has an assignee.
func (t *Ticket) Assigned() bool {
	return t.AssigneeID != nil
}
