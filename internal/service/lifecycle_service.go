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
	"github.com/servcore/helpdesk/internal/workflow"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

// LifecycleService orchestrates ticket status changes: transition legality,
// role permission, and the resolved_at side effect, all persisted in one
// transaction.
type LifecycleService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(store repository.Store, dispatcher events.Dispatcher) *LifecycleService {
	return &LifecycleService{store: store, dispatcher: dispatcher, now: time.Now}
}

// TransitionStatus moves a ticket along the status graph on behalf of actor.
//
// Precondition order: CLOSED tickets are immutable; the actor must be an
// admin, the assigned agent, or the creator, and the role policy must allow
// the requested target; the edge must exist in the transition table.
// Reaching RESOLVED stamps resolved_at; entering IN_PROGRESS from RESOLVED
// clears it (reopening discards the earlier resolution timestamp).
func (s *LifecycleService) TransitionStatus(ctx context.Context, actor *domain.User, ticketID string, target domain.TicketStatus) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	var (
		updated   *domain.Ticket
		oldStatus domain.TicketStatus
	)
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
		if !s.baseTransitionPermission(actor, ticket) {
			return apperrors.NewForbidden("no permission to update this ticket")
		}
		if !workflow.CanTransitionTo(actor, ticket, target) {
			return apperrors.NewForbidden("status change not permitted for role")
		}
		if !workflow.IsValidTransition(ticket.Status, target) {
			return apperrors.NewInvalidTransition(string(ticket.Status), string(target))
		}

		oldStatus = ticket.Status
		applyStatus(ticket, target, s.now())
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, actor.ID, updated, oldStatus)
	return updated, nil
}

// Close closes a RESOLVED ticket via the dedicated owner action.
func (s *LifecycleService) Close(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.ownerTransition(ctx, actor, ticketID, domain.TicketStatusClosed)
}

// Reopen reopens a RESOLVED ticket via the dedicated owner action, clearing
// the resolution timestamp.
func (s *LifecycleService) Reopen(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.ownerTransition(ctx, actor, ticketID, domain.TicketStatusInProgress)
}

func (s *LifecycleService) ownerTransition(ctx context.Context, actor *domain.User, ticketID string, target domain.TicketStatus) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	var (
		updated   *domain.Ticket
		oldStatus domain.TicketStatus
	)
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
		if !actor.IsAdmin() && ticket.CreatorID != actor.ID {
			return apperrors.NewForbidden("only the creator or an admin may close or reopen")
		}
		if !workflow.CanCloseOrReopen(actor, ticket) {
			return apperrors.NewInvalidTransition(string(ticket.Status), string(target))
		}

		oldStatus = ticket.Status
		applyStatus(ticket, target, s.now())
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, actor.ID, updated, oldStatus)
	return updated, nil
}

// baseTransitionPermission is the coarse gate of the lifecycle manager;
// role-specific target restrictions live in the workflow policy.
func (s *LifecycleService) baseTransitionPermission(actor *domain.User, ticket *domain.Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.IsAgent() && ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID {
		return true
	}
	return ticket.CreatorID == actor.ID
}

// applyStatus mutates the ticket's status and resolved_at per the lifecycle
// rules. Reopening always clears resolved_at regardless of which edge was
// taken into IN_PROGRESS.
func applyStatus(ticket *domain.Ticket, target domain.TicketStatus, now time.Time) {
	prior := ticket.Status
	ticket.Status = target
	if target == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = &now
	}
	if target == domain.TicketStatusInProgress && prior == domain.TicketStatusResolved {
		ticket.ResolvedAt = nil
	}
}

func (s *LifecycleService) publishStatusChange(ctx context.Context, actorID string, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	if s.dispatcher == nil || ticket == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		ActorID:   actorID,
		Timestamp: s.now(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
}
