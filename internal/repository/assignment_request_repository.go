package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/servcore/helpdesk/internal/domain"
)

// AssignmentRequestRepository encapsulates assignment-request persistence.
// The uniqueness constraint on (ticket_id, agent_id) and the partial unique
// index on pending requests give the store-level backstop against racing
// request creation.
type AssignmentRequestRepository interface {
	// CreateIfAbsent inserts the request unless a row for the same
	// (ticket, agent) pair already exists. It reports whether the insert
	// happened; false is the first-class Conflict outcome rather than a
	// duplicate-key error.
	CreateIfAbsent(ctx context.Context, request *domain.AssignmentRequest) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.AssignmentRequest, error)
	// GetByIDForUpdate locks the request row for the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.AssignmentRequest, error)
	HasPending(ctx context.Context, ticketID string) (bool, error)
	HasPendingFrom(ctx context.Context, ticketID, agentID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
	// RejectPending marks every PENDING request for the ticket REJECTED,
	// except the request with exceptID (pass "" to reject all).
	RejectPending(ctx context.Context, ticketID, exceptID string) (int64, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.AssignmentRequest, error)
}

type assignmentRequestRepository struct {
	db DB
}

const requestColumns = `id, ticket_id, agent_id, status, created_at, updated_at`

func (r *assignmentRequestRepository) CreateIfAbsent(ctx context.Context, request *domain.AssignmentRequest) (bool, error) {
	const query = `
        INSERT INTO assignment_requests (ticket_id, agent_id, status)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, agent_id) DO NOTHING
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		request.TicketID,
		request.AgentID,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *assignmentRequestRepository) GetByID(ctx context.Context, id string) (*domain.AssignmentRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM assignment_requests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *assignmentRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.AssignmentRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM assignment_requests WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *assignmentRequestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AssignmentRequest, error) {
	var request domain.AssignmentRequest
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&request.ID,
		&request.TicketID,
		&request.AgentID,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *assignmentRequestRepository) HasPending(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM assignment_requests WHERE ticket_id=$1 AND status=$2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, ticketID, domain.RequestStatusPending).Scan(&exists)
	return exists, err
}

func (r *assignmentRequestRepository) HasPendingFrom(ctx context.Context, ticketID, agentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM assignment_requests WHERE ticket_id=$1 AND agent_id=$2 AND status=$3)`
	var exists bool
	err := r.db.QueryRow(ctx, query, ticketID, agentID, domain.RequestStatusPending).Scan(&exists)
	return exists, err
}

func (r *assignmentRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	const query = `UPDATE assignment_requests SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRequestRepository) RejectPending(ctx context.Context, ticketID, exceptID string) (int64, error) {
	// The exception is bound as a nullable uuid. Binding "" and guarding
	// with a text comparison does not survive Postgres plan-time constant
	// folding of ''::uuid, so an empty exception is passed as NULL instead.
	var except *string
	if exceptID != "" {
		except = &exceptID
	}
	const query = `
        UPDATE assignment_requests SET status=$1, updated_at=NOW()
        WHERE ticket_id=$2 AND status=$3 AND ($4::uuid IS NULL OR id <> $4::uuid)`
	cmd, err := r.db.Exec(ctx, query, domain.RequestStatusRejected, ticketID, domain.RequestStatusPending, except)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *assignmentRequestRepository) ListPending(ctx context.Context, limit, offset int) ([]domain.AssignmentRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT ` + requestColumns + ` FROM assignment_requests
        WHERE status=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, domain.RequestStatusPending, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRequest
	for rows.Next() {
		var request domain.AssignmentRequest
		if err := rows.Scan(
			&request.ID,
			&request.TicketID,
			&request.AgentID,
			&request.Status,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}
