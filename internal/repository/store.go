package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface repositories run against. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same repository code serves plain calls and
// transactional ones.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories and the transactional boundary. Cross-field
// updates (status + resolved_at + assignee + sibling-request rejection) must
// run inside WithinTx so a store failure leaves no partial state observable.
type Store interface {
	Tickets() TicketRepository
	Requests() AssignmentRequestRepository
	Users() UserRepository
	Comments() CommentRepository

	// WithinTx runs fn against a Store bound to a single transaction.
	// fn returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type sqlStore struct {
	pool     *pgxpool.Pool
	db       DB
	tickets  TicketRepository
	requests AssignmentRequestRepository
	users    UserRepository
	comments CommentRepository
}

// NewStore builds a Postgres-backed Store on top of a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return newSQLStore(pool, pool)
}

func newSQLStore(pool *pgxpool.Pool, db DB) *sqlStore {
	return &sqlStore{
		pool:     pool,
		db:       db,
		tickets:  &ticketRepository{db: db},
		requests: &assignmentRequestRepository{db: db},
		users:    &userRepository{db: db},
		comments: &commentRepository{db: db},
	}
}

func (s *sqlStore) Tickets() TicketRepository { return s.tickets }
func (s *sqlStore) Requests() AssignmentRequestRepository { return s.requests }
func (s *sqlStore) Users() UserRepository { return s.users }
func (s *sqlStore) Comments() CommentRepository { return s.comments }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		// Already transaction-bound; nested use joins the outer transaction.
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newSQLStore(nil, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
