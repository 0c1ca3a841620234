package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servcore/helpdesk/internal/domain"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

func TestTransitionStampsResolvedAt(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)

	updated, err := f.lifecycle.TransitionStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, testClock, *updated.ResolvedAt)
}

func TestTransitionBackToInProgressClearsResolvedAt(t *testing.T) {
	f := newFixture()
	resolvedAt := testClock.Add(-time.Hour)
	ticket := f.store.SeedTicket(domain.Ticket{
		Title: "t", Description: "d",
		Category: domain.TicketCategoryIT, Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusResolved, CreatorID: f.requester.ID,
		AssigneeID: strPtr(f.agent.ID), ResolvedAt: &resolvedAt,
		CreatedAt: testClock.Add(-2 * time.Hour),
	})

	updated, err := f.lifecycle.TransitionStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Nil(t, updated.ResolvedAt)
}

func TestTransitionRejectsMissingEdge(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusOpen, strPtr(f.agent.ID), time.Hour)

	_, err := f.lifecycle.TransitionStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusResolved)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	stored, getErr := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestTransitionClosedIsImmutable(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusClosed, strPtr(f.agent.ID), time.Hour)

	for _, actor := range []*domain.User{f.admin, f.agent, f.requester} {
		_, err := f.lifecycle.TransitionStatus(context.Background(), actor, ticket.ID, domain.TicketStatusInProgress)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeImmutable), "actor %s", actor.Role)
	}
}

func TestTransitionPermissionDenied(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)

	// An agent not assigned to the ticket cannot move it.
	_, err := f.lifecycle.TransitionStatus(context.Background(), f.agentTwo, ticket.ID, domain.TicketStatusResolved)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	// The creator cannot use the generic transition path either.
	_, err = f.lifecycle.TransitionStatus(context.Background(), f.requester, ticket.ID, domain.TicketStatusResolved)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestTransitionUnknownTicket(t *testing.T) {
	f := newFixture()
	_, err := f.lifecycle.TransitionStatus(context.Background(), f.admin, "7e0bada1-3f2e-4f30-b1af-7a09dcaa4a19", domain.TicketStatusInProgress)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCloseResolvedTicket(t *testing.T) {
	f := newFixture()
	resolvedAt := testClock.Add(-time.Hour)
	ticket := f.store.SeedTicket(domain.Ticket{
		Title: "t", Description: "d",
		Category: domain.TicketCategoryHR, Priority: domain.TicketPriorityMedium,
		Status: domain.TicketStatusResolved, CreatorID: f.requester.ID,
		AssigneeID: strPtr(f.agent.ID), ResolvedAt: &resolvedAt,
		CreatedAt: testClock.Add(-3 * time.Hour),
	})

	updated, err := f.lifecycle.Close(context.Background(), f.requester, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	// Closing keeps the resolution timestamp.
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, resolvedAt, *updated.ResolvedAt)
}

func TestReopenClearsResolvedAt(t *testing.T) {
	f := newFixture()
	resolvedAt := testClock.Add(-time.Hour)
	ticket := f.store.SeedTicket(domain.Ticket{
		Title: "t", Description: "d",
		Category: domain.TicketCategoryIT, Priority: domain.TicketPriorityHigh,
		Status: domain.TicketStatusResolved, CreatorID: f.requester.ID,
		AssigneeID: strPtr(f.agent.ID), ResolvedAt: &resolvedAt,
		CreatedAt: testClock.Add(-3 * time.Hour),
	})

	updated, err := f.lifecycle.Reopen(context.Background(), f.requester, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Nil(t, updated.ResolvedAt)
}

func TestCloseRequiresResolvedState(t *testing.T) {
	f := newFixture()
	ticket := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)

	_, err := f.lifecycle.Close(context.Background(), f.requester, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestCloseForbiddenForStrangers(t *testing.T) {
	f := newFixture()
	resolvedAt := testClock.Add(-time.Hour)
	ticket := f.store.SeedTicket(domain.Ticket{
		Title: "t", Description: "d",
		Category: domain.TicketCategoryIT, Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusResolved, CreatorID: f.requester.ID,
		AssigneeID: strPtr(f.agent.ID), ResolvedAt: &resolvedAt,
		CreatedAt: testClock.Add(-2 * time.Hour),
	})

	_, err := f.lifecycle.Close(context.Background(), f.agent, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}
