package domain

import "time"

// RequestStatus enumerates lifecycle states of an assignment request.
// PENDING is the only non-terminal state.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// AssignmentRequest records an agent asking for an unassigned ticket.
// At most one request exists per (ticket, agent) pair, and at most one
// PENDING request exists per ticket system-wide.
type AssignmentRequest struct {
	ID        string
	TicketID  string
	AgentID   string
	Status    RequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
