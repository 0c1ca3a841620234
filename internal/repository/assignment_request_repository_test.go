package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB captures the statements a repository issues so tests can
// assert on the SQL text and the bound parameters without a live database.
type recordingDB struct {
	sql  string
	args []any
	tag  pgconn.CommandTag
}

func (d *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.sql = sql
	d.args = args
	return d.tag, nil
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.sql = sql
	d.args = args
	return nil, pgx.ErrNoRows
}

func (d *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.sql = sql
	d.args = args
	return nil
}

func TestRejectPendingBindsNullForEmptyException(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("UPDATE 2")}
	repo := &assignmentRequestRepository{db: db}

	affected, err := repo.RejectPending(context.Background(), "ticket-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// Postgres folds a ''::uuid cast at plan time, so the reject-all case
	// must reach the driver as a NULL uuid rather than an empty string.
	require.Len(t, db.args, 4)
	assert.Nil(t, db.args[3])
	assert.Contains(t, db.sql, "$4::uuid IS NULL")
	assert.NotContains(t, db.sql, "$4 = ''")
}

func TestRejectPendingBindsExceptionID(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := &assignmentRequestRepository{db: db}

	affected, err := repo.RejectPending(context.Background(), "ticket-1", "req-42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.Len(t, db.args, 4)
	except, ok := db.args[3].(*string)
	require.True(t, ok)
	require.NotNil(t, except)
	assert.Equal(t, "req-42", *except)
	assert.True(t, strings.Contains(db.sql, "id <> $4::uuid"))
}
