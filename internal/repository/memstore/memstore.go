// Package memstore provides an in-memory repository.Store used by service
// tests. Transactions take the store mutex for their whole extent and roll
// back by restoring a snapshot, so concurrent transactions serialize the
// same way row locks do against Postgres.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/repository"
)

type state struct {
	tickets  map[string]domain.Ticket
	requests map[string]domain.AssignmentRequest
	users    map[string]domain.User
	// comments keep insertion order so listings stay stable even when a
	// fake clock hands every row the same timestamp.
	comments []domain.Comment
}

func (s *state) clone() *state {
	cp := &state{
		tickets:  make(map[string]domain.Ticket, len(s.tickets)),
		requests: make(map[string]domain.AssignmentRequest, len(s.requests)),
		users:    make(map[string]domain.User, len(s.users)),
		comments: append([]domain.Comment(nil), s.comments...),
	}
	for k, v := range s.tickets {
		cp.tickets[k] = v
	}
	for k, v := range s.requests {
		cp.requests[k] = v
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	return cp
}

// Store is the in-memory implementation of repository.Store.
type Store struct {
	mu    sync.Mutex
	data  *state
	now   func() time.Time
	inTx  bool
	outer *Store
}

// New builds an empty store.
func New() *Store {
	return &Store{
		data: &state{
			tickets:  map[string]domain.Ticket{},
			requests: map[string]domain.AssignmentRequest{},
			users:    map[string]domain.User{},
		},
		now: time.Now,
	}
}

func (s *Store) root() *Store {
	if s.outer != nil {
		return s.outer
	}
	return s
}

func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }
func (s *Store) Requests() repository.AssignmentRequestRepository { return &requestRepo{s} }
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Comments() repository.CommentRepository { return &commentRepo{s} }

// WithinTx serializes against every other transaction and restores the
// pre-transaction snapshot when fn fails.
func (s *Store) WithinTx(_ context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	root := s.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	snapshot := root.data.clone()
	tx := &Store{data: root.data, now: root.now, inTx: true, outer: root}
	if err := fn(tx); err != nil {
		root.data.tickets = snapshot.tickets
		root.data.requests = snapshot.requests
		root.data.users = snapshot.users
		root.data.comments = snapshot.comments
		return err
	}
	return nil
}

func (s *Store) run(fn func(st *state, now time.Time)) {
	root := s.root()
	if !s.inTx {
		root.mu.Lock()
		defer root.mu.Unlock()
	}
	fn(root.data, root.now())
}

func (s *Store) runErr(fn func(st *state, now time.Time) error) error {
	var err error
	s.run(func(st *state, now time.Time) { err = fn(st, now) })
	return err
}

// SetClock overrides the clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) { s.root().now = now }

// SeedUser inserts a user directly, filling missing fields.
func (s *Store) SeedUser(user domain.User) domain.User {
	s.run(func(st *state, now time.Time) {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = user
	})
	return user
}

// SeedTicket inserts a ticket directly, preserving the given timestamps so
// tests can age tickets arbitrarily.
func (s *Store) SeedTicket(ticket domain.Ticket) domain.Ticket {
	s.run(func(st *state, now time.Time) {
		if ticket.ID == "" {
			ticket.ID = uuid.NewString()
		}
		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = now
		}
		if ticket.UpdatedAt.IsZero() {
			ticket.UpdatedAt = ticket.CreatedAt
		}
		if ticket.Status == "" {
			ticket.Status = domain.TicketStatusOpen
		}
		st.tickets[ticket.ID] = ticket
	})
	return ticket
}

// SeedRequest inserts an assignment request directly.
func (s *Store) SeedRequest(request domain.AssignmentRequest) domain.AssignmentRequest {
	s.run(func(st *state, now time.Time) {
		if request.ID == "" {
			request.ID = uuid.NewString()
		}
		if request.CreatedAt.IsZero() {
			request.CreatedAt = now
		}
		request.UpdatedAt = request.CreatedAt
		if request.Status == "" {
			request.Status = domain.RequestStatusPending
		}
		st.requests[request.ID] = request
	})
	return request
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		ticket.ID = uuid.NewString()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		st.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		current, ok := st.tickets[ticket.ID]
		if !ok || current.DeletedAt != nil {
			return pgx.ErrNoRows
		}
		ticket.UpdatedAt = now
		st.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.runErr(func(st *state, _ time.Time) error {
		ticket, ok := st.tickets[id]
		if !ok || ticket.DeletedAt != nil {
			return pgx.ErrNoRows
		}
		cp := ticket
		out = &cp
		return nil
	})
	return out, err
}

func (r *ticketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, ticket := range st.tickets {
			if !matches(ticket, filter) {
				continue
			}
			out = append(out, ticket)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

		limit := filter.Limit
		if limit <= 0 {
			limit = 20
		}
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(out) {
			out = nil
			return nil
		}
		out = out[offset:]
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func matches(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if ticket.DeletedAt != nil {
		return false
	}
	if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if filter.Unassigned && ticket.AssigneeID != nil {
		return false
	}
	if filter.VisibleToAgentID != nil &&
		ticket.AssigneeID != nil && *ticket.AssigneeID != *filter.VisibleToAgentID {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Priority != nil && ticket.Priority != *filter.Priority {
		return false
	}
	if filter.Category != nil && ticket.Category != *filter.Category {
		return false
	}
	return true
}

func (r *ticketRepo) SoftDelete(_ context.Context, id string) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		ticket, ok := st.tickets[id]
		if !ok || ticket.DeletedAt != nil {
			return pgx.ErrNoRows
		}
		deleted := now
		ticket.DeletedAt = &deleted
		ticket.UpdatedAt = now
		st.tickets[id] = ticket
		return nil
	})
}

type requestRepo struct{ s *Store }

func (r *requestRepo) CreateIfAbsent(_ context.Context, request *domain.AssignmentRequest) (bool, error) {
	inserted := false
	err := r.s.runErr(func(st *state, now time.Time) error {
		for _, existing := range st.requests {
			if existing.TicketID == request.TicketID && existing.AgentID == request.AgentID {
				return nil
			}
		}
		request.ID = uuid.NewString()
		request.CreatedAt = now
		request.UpdatedAt = now
		st.requests[request.ID] = *request
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.AssignmentRequest, error) {
	var out *domain.AssignmentRequest
	err := r.s.runErr(func(st *state, _ time.Time) error {
		request, ok := st.requests[id]
		if !ok {
			return pgx.ErrNoRows
		}
		cp := request
		out = &cp
		return nil
	})
	return out, err
}

func (r *requestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.AssignmentRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *requestRepo) HasPending(_ context.Context, ticketID string) (bool, error) {
	exists := false
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, request := range st.requests {
			if request.TicketID == ticketID && request.Status == domain.RequestStatusPending {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *requestRepo) HasPendingFrom(_ context.Context, ticketID, agentID string) (bool, error) {
	exists := false
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, request := range st.requests {
			if request.TicketID == ticketID && request.AgentID == agentID &&
				request.Status == domain.RequestStatusPending {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *requestRepo) UpdateStatus(_ context.Context, id string, status domain.RequestStatus) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		request, ok := st.requests[id]
		if !ok {
			return pgx.ErrNoRows
		}
		request.Status = status
		request.UpdatedAt = now
		st.requests[id] = request
		return nil
	})
}

func (r *requestRepo) RejectPending(_ context.Context, ticketID, exceptID string) (int64, error) {
	var count int64
	err := r.s.runErr(func(st *state, now time.Time) error {
		for id, request := range st.requests {
			if request.TicketID != ticketID || request.Status != domain.RequestStatusPending {
				continue
			}
			if exceptID != "" && id == exceptID {
				continue
			}
			request.Status = domain.RequestStatusRejected
			request.UpdatedAt = now
			st.requests[id] = request
			count++
		}
		return nil
	})
	return count, err
}

func (r *requestRepo) ListPending(_ context.Context, limit, offset int) ([]domain.AssignmentRequest, error) {
	var out []domain.AssignmentRequest
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, request := range st.requests {
			if request.Status == domain.RequestStatusPending {
				out = append(out, request)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}
		if offset >= len(out) {
			out = nil
			return nil
		}
		out = out[offset:]
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		user.ID = uuid.NewString()
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		if _, ok := st.users[user.ID]; !ok {
			return pgx.ErrNoRows
		}
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.runErr(func(st *state, _ time.Time) error {
		user, ok := st.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		cp := user
		out = &cp
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, user := range st.users {
			if strings.EqualFold(user.Email, email) {
				cp := user
				out = &cp
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r *userRepo) ListByRoles(_ context.Context, roles ...domain.Role) ([]domain.User, error) {
	var out []domain.User
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, user := range st.users {
			for _, role := range roles {
				if user.Role == role {
					out = append(out, user)
					break
				}
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	return r.s.runErr(func(st *state, now time.Time) error {
		comment.ID = uuid.NewString()
		comment.CreatedAt = now
		st.comments = append(st.comments, *comment)
		return nil
	})
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := r.s.runErr(func(st *state, _ time.Time) error {
		for _, comment := range st.comments {
			if comment.TicketID == ticketID {
				out = append(out, comment)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}
