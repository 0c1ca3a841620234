package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/servcore/helpdesk/internal/domain"
)

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTicket(priority domain.TicketPriority, age time.Duration) *domain.Ticket {
	return &domain.Ticket{
		ID:        "t1",
		Priority:  priority,
		Status:    domain.TicketStatusOpen,
		CreatedAt: baseTime.Add(-age),
	}
}

func TestTargetHours(t *testing.T) {
	assert.Equal(t, 4, TargetHours(domain.TicketPriorityCritical))
	assert.Equal(t, 24, TargetHours(domain.TicketPriorityHigh))
	assert.Equal(t, 48, TargetHours(domain.TicketPriorityMedium))
	assert.Equal(t, 72, TargetHours(domain.TicketPriorityLow))
	assert.Equal(t, 72, TargetHours(domain.TicketPriority("Bogus")))
}

func TestComputeUnresolved(t *testing.T) {
	tests := []struct {
		name      string
		priority  domain.TicketPriority
		age       time.Duration
		wantClass StatusClass
		wantOver  bool
		wantText  string
	}{
		{"fresh critical", domain.TicketPriorityCritical, 30 * time.Minute, StatusOK, false, "3h 30m remaining"},
		{"critical inside warning window", domain.TicketPriorityCritical, 3*time.Hour + 59*time.Minute, StatusWarning, false, "1m remaining"},
		{"critical exactly at target", domain.TicketPriorityCritical, 4 * time.Hour, StatusWarning, false, "0m remaining"},
		{"critical past target", domain.TicketPriorityCritical, 4*time.Hour + time.Minute, StatusOverdue, true, "1m overdue"},
		{"high at warning boundary", domain.TicketPriorityHigh, 22 * time.Hour, StatusOK, false, "2h remaining"},
		{"high just inside warning", domain.TicketPriorityHigh, 22*time.Hour + time.Minute, StatusWarning, false, "1h 59m remaining"},
		{"low long overdue", domain.TicketPriorityLow, 96 * time.Hour, StatusOverdue, true, "1d overdue"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			view := Compute(newTicket(tc.priority, tc.age), baseTime)
			assert.Equal(t, tc.wantClass, view.StatusClass)
			assert.Equal(t, tc.wantOver, view.Overdue)
			assert.Equal(t, tc.wantText, view.DisplayText)
		})
	}
}

func TestComputeUnresolvedRemaining(t *testing.T) {
	view := Compute(newTicket(domain.TicketPriorityMedium, 12*time.Hour), baseTime)
	assert.Equal(t, 48, view.TargetHours)
	assert.InDelta(t, 12, view.ElapsedHours, 0.001)
	assert.InDelta(t, 36, view.RemainingHours, 0.001)
}

func TestComputeResolvedWithinTarget(t *testing.T) {
	ticket := newTicket(domain.TicketPriorityHigh, 30*time.Hour)
	resolvedAt := ticket.CreatedAt.Add(10 * time.Hour)
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &resolvedAt

	view := Compute(ticket, baseTime)
	assert.Equal(t, StatusOK, view.StatusClass)
	assert.False(t, view.Overdue)
	assert.Zero(t, view.RemainingHours)
	assert.Equal(t, "Resolved in 10h (within SLA)", view.DisplayText)
}

func TestComputeResolvedPastTarget(t *testing.T) {
	ticket := newTicket(domain.TicketPriorityCritical, 30*time.Hour)
	resolvedAt := ticket.CreatedAt.Add(6 * time.Hour)
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &resolvedAt

	view := Compute(ticket, baseTime)
	assert.Equal(t, StatusOverdue, view.StatusClass)
	assert.True(t, view.Overdue)
	assert.Equal(t, "Resolved in 6h (overdue)", view.DisplayText)
}

func TestComputeResolvedClassificationFrozen(t *testing.T) {
	ticket := newTicket(domain.TicketPriorityCritical, 2*time.Hour)
	resolvedAt := ticket.CreatedAt.Add(time.Hour)
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &resolvedAt

	// The view does not drift after resolution as wall time passes.
	early := Compute(ticket, baseTime)
	late := Compute(ticket, baseTime.Add(100*time.Hour))
	assert.Equal(t, early, late)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45m", formatDuration(0.75))
	assert.Equal(t, "5h", formatDuration(5))
	assert.Equal(t, "5h 30m", formatDuration(5.5))
	assert.Equal(t, "2d", formatDuration(48))
	assert.Equal(t, "2d 3h", formatDuration(51))
}
