// Package sla computes service-level deadline state for tickets. All
// functions are pure; callers supply the clock.
package sla

import (
	"fmt"
	"math"
	"time"

	"github.com/servcore/helpdesk/internal/domain"
)

// StatusClass buckets a ticket's SLA state for display.
type StatusClass string

const (
	StatusOK      StatusClass = "ok"
	StatusWarning StatusClass = "warning"
	StatusOverdue StatusClass = "overdue"
)

// warningWindow is how close to the deadline an unresolved ticket may get
// before it is flagged as a warning.
const warningWindow = 2 * time.Hour

// View is the computed SLA state of a single ticket.
type View struct {
	TargetHours    int         `json:"target_hours"`
	ElapsedHours   float64     `json:"elapsed_hours"`
	RemainingHours float64     `json:"remaining_hours"`
	Overdue        bool        `json:"overdue"`
	StatusClass    StatusClass `json:"status_class"`
	DisplayText    string      `json:"display_text"`
}

// TargetHours returns the SLA target in hours for a priority level.
// Unknown priorities fall back to the most lenient target.
func TargetHours(priority domain.TicketPriority) int {
	switch priority {
	case domain.TicketPriorityCritical:
		return 4
	case domain.TicketPriorityHigh:
		return 24
	case domain.TicketPriorityMedium:
		return 48
	case domain.TicketPriorityLow:
		return 72
	default:
		return 72
	}
}

// Compute derives the SLA view for a ticket at the given instant.
//
// Resolved tickets are classified post hoc: elapsed is the resolution time,
// remaining is reported as zero either way, and overdue means the ticket
// was resolved past its target. Unresolved tickets count down toward the
// deadline and go overdue only strictly past it.
func Compute(ticket *domain.Ticket, now time.Time) View {
	target := TargetHours(ticket.Priority)

	if ticket.ResolvedAt != nil {
		elapsed := ticket.ResolvedAt.Sub(ticket.CreatedAt).Hours()
		overdue := elapsed > float64(target)
		class := StatusOK
		if overdue {
			class = StatusOverdue
		}
		return View{
			TargetHours:    target,
			ElapsedHours:   elapsed,
			RemainingHours: 0,
			Overdue:        overdue,
			StatusClass:    class,
			DisplayText:    "Resolved in " + formatDuration(elapsed) + resolvedSuffix(overdue),
		}
	}

	elapsed := now.Sub(ticket.CreatedAt).Hours()
	remaining := float64(target) - elapsed
	overdue := remaining < 0

	var class StatusClass
	switch {
	case overdue:
		class = StatusOverdue
	case remaining < warningWindow.Hours():
		class = StatusWarning
	default:
		class = StatusOK
	}

	text := formatDuration(abs(remaining)) + " remaining"
	if overdue {
		text = formatDuration(abs(remaining)) + " overdue"
	}
	return View{
		TargetHours:    target,
		ElapsedHours:   elapsed,
		RemainingHours: remaining,
		Overdue:        overdue,
		StatusClass:    class,
		DisplayText:    text,
	}
}

func resolvedSuffix(overdue bool) string {
	if overdue {
		return " (overdue)"
	}
	return " (within SLA)"
}

// formatDuration renders a span of hours using the largest two non-zero
// units out of days, hours and minutes. The span is rounded to whole
// minutes first so float noise cannot shift the displayed value.
func formatDuration(hours float64) string {
	totalMinutes := int(math.Round(hours * 60))
	if totalMinutes < 0 {
		totalMinutes = 0
	}

	switch {
	case totalMinutes < 60:
		return fmt.Sprintf("%dm", totalMinutes)
	case totalMinutes < 24*60:
		h := totalMinutes / 60
		m := totalMinutes % 60
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	default:
		d := totalMinutes / (24 * 60)
		h := totalMinutes % (24 * 60) / 60
		if h > 0 {
			return fmt.Sprintf("%dd %dh", d, h)
		}
		return fmt.Sprintf("%dd", d)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
