package dto

import (
	"time"

	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/sla"
)

// CreateTicketRequest is the payload for filing a ticket.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

// UpdateTicketRequest carries a partial edit. Absent fields stay unchanged.
type UpdateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
}

// TransitionRequest names the target status for a lifecycle move.
type TransitionRequest struct {
	Status string `json:"status"`
}

// AssignRequest names the agent for a direct assignment. A null agent_id
// unassigns the ticket.
type AssignRequest struct {
	AgentID *string `json:"agent_id"`
}

// AddCommentRequest is the payload for a new comment.
type AddCommentRequest struct {
	Body string `json:"body"`
}

// TicketResponse is the wire shape of a ticket, including its computed
// SLA state and whether the caller may request assignment right now.
type TicketResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatorID   string     `json:"creator_id"`
	AssigneeID  *string    `json:"assignee_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	SLA         sla.View   `json:"sla"`
	CanRequest  bool       `json:"can_request_assignment"`
}

// CommentResponse is the wire shape of a comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse is a ticket plus its comment thread.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// TicketListResponse wraps a page of tickets.
type TicketListResponse struct {
	Tickets []TicketResponse `json:"tickets"`
	Count   int              `json:"count"`
}

// NewTicketResponse maps a domain ticket to its wire shape.
func NewTicketResponse(ticket *domain.Ticket, slaView sla.View, canRequest bool) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    string(ticket.Category),
		Priority:    string(ticket.Priority),
		Status:      string(ticket.Status),
		CreatorID:   ticket.CreatorID,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ResolvedAt:  ticket.ResolvedAt,
		SLA:         slaView,
		CanRequest:  canRequest,
	}
}

// NewCommentResponse maps a domain comment to its wire shape.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
