package errorutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	err := NewInvalidTransition("OPEN", "RESOLVED")
	mapped := ToDomainError(err)
	assert.Equal(t, CodeInvalidTransition, mapped.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, mapped.HTTPStatus)
	assert.Equal(t, "OPEN", mapped.Details["current"])
}

func TestToDomainErrorNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, CodeNotFound, mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func TestToDomainErrorUnknown(t *testing.T) {
	cause := errors.New("boom")
	mapped := ToDomainError(cause)
	assert.Equal(t, CodeInternal, mapped.Code)
	assert.ErrorIs(t, mapped, cause)
}

func TestIsCode(t *testing.T) {
	err := NewImmutable("closed tickets cannot be modified")
	assert.True(t, IsCode(err, CodeImmutable))
	assert.False(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(errors.New("plain"), CodeImmutable))
}
