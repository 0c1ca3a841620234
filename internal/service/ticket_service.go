package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/events"
	"github.com/servcore/helpdesk/internal/repository"
	"github.com/servcore/helpdesk/internal/workflow"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxCommentLength     = 2000
)

// TicketService coordinates ticket CRUD and the comment thread. Status and
// assignment mutations belong to LifecycleService and ArbitrationService.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(store repository.Store, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{store: store, dispatcher: dispatcher, now: time.Now}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// TicketEditInput describes a creator edit. Nil fields are left unchanged.
type TicketEditInput struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Priority    *domain.TicketPriority
}

// TicketListFilter describes listing filters on top of the role scope.
type TicketListFilter struct {
	Statuses []domain.TicketStatus
	Priority *domain.TicketPriority
	Category *domain.TicketCategory
	Limit    int
	Offset   int
}

// Create files a new ticket for the actor. Tickets always start OPEN and
// unassigned.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)

	details := map[string]any{}
	if title == "" {
		details["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		details["title"] = "title must be at most 200 characters"
	}
	if description == "" {
		details["description"] = "description is required"
	} else if len(description) > maxDescriptionLength {
		details["description"] = "description must be at most 5000 characters"
	}
	if !domain.ValidCategory(input.Category) {
		details["category"] = "invalid category"
	}
	if !domain.ValidPriority(input.Priority) {
		details["priority"] = "invalid priority"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   actor.ID,
	}
	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Category: ticket.Category,
			Priority: ticket.Priority,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// List returns tickets visible to the actor: admins see everything, agents
// see unassigned tickets plus their own assignments, users see their own.
func (s *TicketService) List(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	repoFilter := repository.TicketFilter{
		Statuses: filter.Statuses,
		Priority: filter.Priority,
		Category: filter.Category,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleAgent:
		agentID := actor.ID
		repoFilter.VisibleToAgentID = &agentID
	default:
		creatorID := actor.ID
		repoFilter.CreatorID = &creatorID
	}
	tickets, err := s.store.Tickets().ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListUnassigned returns unassigned tickets for the admin assignment view.
func (s *TicketService) ListUnassigned(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	tickets, err := s.store.Tickets().ListWithFilter(ctx, repository.TicketFilter{
		Unassigned: true,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get fetches a ticket with its comment thread, enforcing the view policy.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	if actor == nil {
		return nil, nil, apperrors.NewUnauthorized("actor required")
	}
	ticket, err := s.getVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.store.Comments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, nil
}

// Edit updates mutable fields. Creator only, and only while the ticket is
// OPEN and unassigned.
func (s *TicketService) Edit(ctx context.Context, actor *domain.User, ticketID string, input TicketEditInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	var updated *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}
		if ticket.Status == domain.TicketStatusClosed {
			return apperrors.NewImmutable("closed tickets cannot be modified")
		}
		if !workflow.CanEdit(actor, ticket) {
			return apperrors.NewForbidden("only unassigned open tickets can be edited by their creator")
		}

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" || len(title) > maxTitleLength {
				return apperrors.NewValidationError("invalid title", nil)
			}
			ticket.Title = title
		}
		if input.Description != nil {
			description := strings.TrimSpace(*input.Description)
			if description == "" || len(description) > maxDescriptionLength {
				return apperrors.NewValidationError("invalid description", nil)
			}
			ticket.Description = description
		}
		if input.Category != nil {
			if !domain.ValidCategory(*input.Category) {
				return apperrors.NewValidationError("invalid category", nil)
			}
			ticket.Category = *input.Category
		}
		if input.Priority != nil {
			if !domain.ValidPriority(*input.Priority) {
				return apperrors.NewValidationError("invalid priority", nil)
			}
			ticket.Priority = *input.Priority
		}

		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-removes a ticket. Creator only, OPEN and unassigned; assigned
// tickets are never deleted.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, ticketID string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("actor required")
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}
		if !workflow.CanEdit(actor, ticket) {
			return apperrors.NewForbidden("only unassigned open tickets can be removed by their creator")
		}
		if err := tx.Tickets().SoftDelete(ctx, ticket.ID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
}

// AddComment appends a comment. Any viewer of the ticket may comment;
// CLOSED tickets are read-only.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, body string) (*domain.Comment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment text is required", nil)
	}
	if len(body) > maxCommentLength {
		return nil, apperrors.NewValidationError("comment must be at most 2000 characters", nil)
	}

	ticket, err := s.getVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewImmutable("this ticket is closed and read-only")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Body:     body,
	}
	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			BodyPreview: preview(comment.Body, 120),
		},
	})
	return comment, nil
}

func (s *TicketService) getVisible(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !workflow.CanView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// preview trims body to at most max bytes without splitting a UTF-8 rune.
func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	cut := max
	if max > 3 {
		cut = max - 3
	}
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	if max <= 3 {
		return body[:cut]
	}
	return body[:cut] + "..."
}
