package dto

import (
	"time"

	"github.com/servcore/helpdesk/internal/domain"
)

// AssignmentRequestResponse is the wire shape of an assignment request.
type AssignmentRequestResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AgentID   string    `json:"agent_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignmentRequestListResponse wraps a page of requests.
type AssignmentRequestListResponse struct {
	Requests []AssignmentRequestResponse `json:"requests"`
	Count    int                         `json:"count"`
}

// NewAssignmentRequestResponse maps a domain request to its wire shape.
func NewAssignmentRequestResponse(request *domain.AssignmentRequest) AssignmentRequestResponse {
	return AssignmentRequestResponse{
		ID:        request.ID,
		TicketID:  request.TicketID,
		AgentID:   request.AgentID,
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
	}
}
