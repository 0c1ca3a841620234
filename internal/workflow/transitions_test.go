package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/servcore/helpdesk/internal/domain"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		current domain.TicketStatus
		target  domain.TicketStatus
		want    bool
	}{
		{domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{domain.TicketStatusOpen, domain.TicketStatusResolved, false},
		{domain.TicketStatusOpen, domain.TicketStatusClosed, false},
		{domain.TicketStatusOpen, domain.TicketStatusOpen, false},

		{domain.TicketStatusInProgress, domain.TicketStatusOpen, true},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{domain.TicketStatusInProgress, domain.TicketStatusInProgress, false},

		{domain.TicketStatusResolved, domain.TicketStatusInProgress, true},
		{domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{domain.TicketStatusResolved, domain.TicketStatusOpen, false},
		{domain.TicketStatusResolved, domain.TicketStatusResolved, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IsValidTransition(tc.current, tc.target),
			"%s -> %s", tc.current, tc.target)
	}
}

func TestClosedHasNoOutgoingEdges(t *testing.T) {
	targets := []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	}
	for _, target := range targets {
		assert.False(t, IsValidTransition(domain.TicketStatusClosed, target),
			"CLOSED -> %s must be rejected", target)
	}
}

func TestUnknownStatusHasNoEdges(t *testing.T) {
	assert.False(t, IsValidTransition(domain.TicketStatus("ARCHIVED"), domain.TicketStatusOpen))
}
