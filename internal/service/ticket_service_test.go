package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servcore/helpdesk/internal/domain"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

func TestCreateTicket(t *testing.T) {
	f := newFixture()

	ticket, err := f.tickets.Create(context.Background(), f.requester, TicketCreateInput{
		Title:       "  VPN keeps dropping  ",
		Description: "Disconnects every few minutes since Monday.",
		Category:    domain.TicketCategoryIT,
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "VPN keeps dropping", ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, f.requester.ID, ticket.CreatorID)
	assert.Nil(t, ticket.AssigneeID)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture()

	_, err := f.tickets.Create(context.Background(), f.requester, TicketCreateInput{
		Title:       strings.Repeat("x", 201),
		Description: "",
		Category:    domain.TicketCategory("Legal"),
		Priority:    domain.TicketPriority("Urgent"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Details, "title")
	assert.Contains(t, domainErr.Details, "description")
	assert.Contains(t, domainErr.Details, "category")
	assert.Contains(t, domainErr.Details, "priority")
}

func TestListRoleScoping(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mine := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)
	assignedToAgent := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), 2*time.Hour)
	assignedElsewhere := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agentTwo.ID), 3*time.Hour)
	foreign := f.store.SeedTicket(domain.Ticket{
		Title: "t", Description: "d",
		Category: domain.TicketCategoryOps, Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatorID: f.agentTwo.ID,
		CreatedAt: testClock.Add(-4 * time.Hour),
	})

	asUser, err := f.tickets.List(ctx, f.requester, TicketListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{mine.ID, assignedToAgent.ID, assignedElsewhere.ID}, ids(asUser))

	asAgent, err := f.tickets.List(ctx, f.agent, TicketListFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{mine.ID, assignedToAgent.ID, foreign.ID}, ids(asAgent))

	asAdmin, err := f.tickets.List(ctx, f.admin, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, asAdmin, 4)
}

func TestListStatusFilter(t *testing.T) {
	f := newFixture()
	open := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)
	f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), 2*time.Hour)

	got, err := f.tickets.List(context.Background(), f.admin, TicketListFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)
}

func TestListUnassignedAdminOnly(t *testing.T) {
	f := newFixture()
	unassigned := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)
	f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)

	got, err := f.tickets.ListUnassigned(context.Background(), f.admin, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, unassigned.ID, got[0].ID)

	_, err = f.tickets.ListUnassigned(context.Background(), f.agent, 10, 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestGetEnforcesViewPolicy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)

	_, _, err := f.tickets.Get(ctx, f.requester, ticket.ID)
	assert.NoError(t, err)

	_, _, err = f.tickets.Get(ctx, f.agentTwo, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	stranger := f.store.SeedUser(domain.User{Name: "Sam", Email: "sam@example.com", Role: domain.RoleUser})
	_, _, err = f.tickets.Get(ctx, &stranger, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestGetReturnsComments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)

	_, err := f.tickets.AddComment(ctx, f.requester, ticket.ID, "first")
	require.NoError(t, err)
	_, err = f.tickets.AddComment(ctx, f.agent, ticket.ID, "second")
	require.NoError(t, err)

	_, comments, err := f.tickets.Get(ctx, f.requester, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, "second", comments[1].Body)
}

func TestEditRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	open := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)
	newTitle := "Clearer title"
	updated, err := f.tickets.Edit(ctx, f.requester, open.ID, TicketEditInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)

	assigned := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)
	_, err = f.tickets.Edit(ctx, f.requester, assigned.ID, TicketEditInput{Title: &newTitle})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	closed := f.seedTicket(domain.TicketStatusClosed, strPtr(f.agent.ID), time.Hour)
	_, err = f.tickets.Edit(ctx, f.requester, closed.ID, TicketEditInput{Title: &newTitle})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeImmutable))

	empty := "   "
	_, err = f.tickets.Edit(ctx, f.requester, open.ID, TicketEditInput{Title: &empty})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestDeleteRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	open := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)
	require.NoError(t, f.tickets.Delete(ctx, f.requester, open.ID))

	// Soft-deleted tickets disappear from every accessor.
	_, _, err := f.tickets.Get(ctx, f.admin, open.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	assigned := f.seedTicket(domain.TicketStatusInProgress, strPtr(f.agent.ID), time.Hour)
	err = f.tickets.Delete(ctx, f.requester, assigned.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestAddCommentRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ticket := f.seedTicket(domain.TicketStatusOpen, nil, time.Hour)
	comment, err := f.tickets.AddComment(ctx, f.requester, ticket.ID, "any update on this?")
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)

	_, err = f.tickets.AddComment(ctx, f.requester, ticket.ID, "  ")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.tickets.AddComment(ctx, f.requester, ticket.ID, strings.Repeat("x", 2001))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	closed := f.seedTicket(domain.TicketStatusClosed, strPtr(f.agent.ID), time.Hour)
	_, err = f.tickets.AddComment(ctx, f.requester, closed.ID, "still broken")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeImmutable))

	_, err = f.tickets.AddComment(ctx, f.agentTwo, ticket.ID, "drive-by")
	assert.NoError(t, err, "unassigned tickets are visible to every agent")
}

func TestPreviewKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", preview("short", 120))
	assert.Equal(t, strings.Repeat("x", 117)+"...", preview(strings.Repeat("x", 200), 120))

	// Two-byte runes: the byte cut at max-3 lands mid-rune and must back up.
	accented := strings.Repeat("é", 80)
	trimmed := preview(accented, 120)
	assert.True(t, utf8.ValidString(trimmed))
	assert.LessOrEqual(t, len(trimmed), 120)
	assert.Equal(t, strings.Repeat("é", 58)+"...", trimmed)
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, ticket.ID)
	}
	return out
}
