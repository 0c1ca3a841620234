package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/events"
	"github.com/servcore/helpdesk/internal/repository"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

// DefaultRequestMinAge is how old an unassigned OPEN ticket must be before
// agents may request it.
const DefaultRequestMinAge = 24 * time.Hour

// ArbitrationService manages the request/approve/reject workflow for
// unassigned tickets. It guarantees at most one agent is ever granted a
// given ticket: eligibility and the single-PENDING rule are checked under a
// row lock at submission, and approval re-reads the assignee inside its own
// transaction so a ticket assigned through another path surfaces as
// Conflict instead of a double grant.
type ArbitrationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	minAge     time.Duration
	now        func() time.Time
}

// NewArbitrationService constructs the service. minAge <= 0 falls back to
// DefaultRequestMinAge.
func NewArbitrationService(store repository.Store, dispatcher events.Dispatcher, minAge time.Duration) *ArbitrationService {
	if minAge <= 0 {
		minAge = DefaultRequestMinAge
	}
	return &ArbitrationService{store: store, dispatcher: dispatcher, minAge: minAge, now: time.Now}
}

// CanRequest is the single source of truth for the eligibility gate: the
// ticket is unassigned, OPEN, and at least the configured age. Display and
// submission paths both call this rather than re-deriving the condition.
func (s *ArbitrationService) CanRequest(ticket *domain.Ticket, now time.Time) bool {
	return !ticket.Assigned() &&
		ticket.Status == domain.TicketStatusOpen &&
		now.Sub(ticket.CreatedAt) >= s.minAge
}

// SubmitRequest files a PENDING assignment request from actor for the
// ticket. Only one PENDING request may exist per ticket system-wide; the
// first submitter holds the slot until an admin decides.
func (s *ArbitrationService) SubmitRequest(ctx context.Context, actor *domain.User, ticketID string) (*domain.AssignmentRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if !actor.IsAgent() {
		return nil, apperrors.NewForbidden("only agents may request assignment")
	}

	var request *domain.AssignmentRequest
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}
		if !s.CanRequest(ticket, s.now()) {
			return apperrors.NewNotEligible("ticket is not eligible for assignment request")
		}

		// Only one PENDING request may exist per ticket system-wide, so the
		// any-agent check comes first: a slot-holder resubmitting sees the
		// same Conflict as everyone else. The same-agent check stays as an
		// explicit precondition behind it.
		pending, err := tx.Requests().HasPending(ctx, ticketID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if pending {
			return apperrors.NewConflict("another agent has already requested this ticket", map[string]any{"ticket_id": ticketID})
		}
		pendingFromActor, err := tx.Requests().HasPendingFrom(ctx, ticketID, actor.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if pendingFromActor {
			return apperrors.NewDuplicateRequest("you already have a pending request for this ticket")
		}

		request = &domain.AssignmentRequest{
			TicketID: ticketID,
			AgentID:  actor.ID,
			Status:   domain.RequestStatusPending,
		}
		inserted, err := tx.Requests().CreateIfAbsent(ctx, request)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !inserted {
			// The (ticket, agent) row already exists: the store backstop
			// caught a race the precondition reads missed.
			return apperrors.NewConflict("assignment request already exists", map[string]any{"ticket_id": ticketID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAssignmentRequested,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.AssignmentRequestedPayload{
			RequestID: request.ID,
			AgentID:   actor.ID,
		},
	})
	return request, nil
}

// Approve grants the requesting agent the ticket. The assignee is re-read
// under a row lock at commit time, not trusted from request time: a ticket
// assigned through another path between submission and approval returns
// Conflict and leaves every field untouched.
func (s *ArbitrationService) Approve(ctx context.Context, actor *domain.User, requestID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	var (
		ticketID string
		agentID  string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("assignment request", map[string]any{"request_id": requestID})
			}
			return apperrors.MapError(err)
		}
		if request.Status != domain.RequestStatusPending {
			return apperrors.NewConflict("assignment request already processed", map[string]any{"request_id": requestID})
		}

		ticket, err := tx.Tickets().GetByIDForUpdate(ctx, request.TicketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": request.TicketID})
			}
			return apperrors.MapError(err)
		}
		if ticket.Assigned() {
			return apperrors.NewConflict("ticket was assigned through another path", map[string]any{"ticket_id": ticket.ID})
		}
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			return apperrors.NewAlreadyResolved("cannot assign a resolved or closed ticket")
		}

		agent := request.AgentID
		ticket.AssigneeID = &agent
		// Admin-privileged path: OPEN -> IN_PROGRESS without the generic
		// transition RBAC.
		ticket.Status = domain.TicketStatusInProgress
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		if err := tx.Requests().UpdateStatus(ctx, request.ID, domain.RequestStatusApproved); err != nil {
			return apperrors.MapError(err)
		}
		if _, err := tx.Requests().RejectPending(ctx, ticket.ID, request.ID); err != nil {
			return apperrors.MapError(err)
		}

		ticketID = ticket.ID
		agentID = agent
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAssignmentResolved,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.AssignmentResolvedPayload{
			RequestID: requestID,
			AgentID:   agentID,
			Outcome:   domain.RequestStatusApproved,
		},
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: &agentID},
	})
	return nil
}

// Reject marks a PENDING request REJECTED. Rejecting a request that already
// left PENDING is a no-op, not an error.
func (s *ArbitrationService) Reject(ctx context.Context, actor *domain.User, requestID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	var (
		rejected bool
		ticketID string
		agentID  string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("assignment request", map[string]any{"request_id": requestID})
			}
			return apperrors.MapError(err)
		}
		if request.Status != domain.RequestStatusPending {
			return nil
		}
		if err := tx.Requests().UpdateStatus(ctx, request.ID, domain.RequestStatusRejected); err != nil {
			return apperrors.MapError(err)
		}
		rejected = true
		ticketID = request.TicketID
		agentID = request.AgentID
		return nil
	})
	if err != nil || !rejected {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventAssignmentResolved,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.AssignmentResolvedPayload{
			RequestID: requestID,
			AgentID:   agentID,
			Outcome:   domain.RequestStatusRejected,
		},
	})
	return nil
}

// DirectAssign is the admin bypass path: assign the ticket to an agent (or
// unassign with a nil agentID) without any request involved. Assignment
// moves the ticket to IN_PROGRESS; unassignment reverts IN_PROGRESS to OPEN
// so an unassigned ticket is never left mid-flight. Either way, pending
// requests for the ticket are rejected in the same transaction, since
// direct assignment also settles who owns the ticket.
func (s *ArbitrationService) DirectAssign(ctx context.Context, actor *domain.User, ticketID string, agentID *string) (*domain.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
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
			return apperrors.NewConflict("closed tickets cannot be reassigned", map[string]any{"ticket_id": ticketID})
		}

		if agentID != nil {
			agent, err := tx.Users().GetByID(ctx, *agentID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewInvalidAgent("agent not found")
				}
				return apperrors.MapError(err)
			}
			if !agent.IsAgent() {
				return apperrors.NewInvalidAgent("assignee must hold the agent role")
			}
			prior := ticket.Status
			ticket.AssigneeID = &agent.ID
			ticket.Status = domain.TicketStatusInProgress
			if prior == domain.TicketStatusResolved {
				ticket.ResolvedAt = nil
			}
		} else {
			ticket.AssigneeID = nil
			if ticket.Status == domain.TicketStatusInProgress {
				ticket.Status = domain.TicketStatusOpen
			}
		}

		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		if _, err := tx.Requests().RejectPending(ctx, ticket.ID, ""); err != nil {
			return apperrors.MapError(err)
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: agentID},
	})
	return updated, nil
}

// ListAssignableAgents returns the agents an admin can choose from when
// assigning a ticket directly.
func (s *ArbitrationService) ListAssignableAgents(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	agents, err := s.store.Users().ListByRoles(ctx, domain.RoleAgent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// ListPendingRequests returns PENDING requests oldest first for the admin
// review queue.
func (s *ArbitrationService) ListPendingRequests(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.AssignmentRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	requests, err := s.store.Requests().ListPending(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

func requireAdmin(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("actor required")
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func (s *ArbitrationService) publish(ctx context.Context, event events.Event) {
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
