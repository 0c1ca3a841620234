package service

import (
	"time"

	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/events"
	"github.com/servcore/helpdesk/internal/repository/memstore"
)

var testClock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// fixture bundles an in-memory store with the services under test, all
// pinned to the same fake clock.
type fixture struct {
	store       *memstore.Store
	dispatcher  events.Dispatcher
	tickets     *TicketService
	lifecycle   *LifecycleService
	arbitration *ArbitrationService

	requester *domain.User
	agent     *domain.User
	agentTwo  *domain.User
	admin     *domain.User
}

func newFixture() *fixture {
	store := memstore.New()
	store.SetClock(func() time.Time { return testClock })
	dispatcher := events.NewInMemoryDispatcher()

	f := &fixture{
		store:       store,
		dispatcher:  dispatcher,
		tickets:     NewTicketService(store, dispatcher),
		lifecycle:   NewLifecycleService(store, dispatcher),
		arbitration: NewArbitrationService(store, dispatcher, 0),
	}
	f.tickets.now = func() time.Time { return testClock }
	f.lifecycle.now = func() time.Time { return testClock }
	f.arbitration.now = func() time.Time { return testClock }

	requester := store.SeedUser(domain.User{Name: "Rita", Email: "rita@example.com", Role: domain.RoleUser})
	agent := store.SeedUser(domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleAgent})
	agentTwo := store.SeedUser(domain.User{Name: "Ben", Email: "ben@example.com", Role: domain.RoleAgent})
	admin := store.SeedUser(domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin})
	f.requester = &requester
	f.agent = &agent
	f.agentTwo = &agentTwo
	f.admin = &admin
	return f
}

// seedTicket inserts a ticket created age ago by the default requester.
func (f *fixture) seedTicket(status domain.TicketStatus, assigneeID *string, age time.Duration) domain.Ticket {
	return f.store.SeedTicket(domain.Ticket{
		Title:       "Printer on fire",
		Description: "The office printer is emitting smoke.",
		Category:    domain.TicketCategoryIT,
		Priority:    domain.TicketPriorityHigh,
		Status:      status,
		CreatorID:   f.requester.ID,
		AssigneeID:  assigneeID,
		CreatedAt:   testClock.Add(-age),
	})
}

func strPtr(s string) *string { return &s }
