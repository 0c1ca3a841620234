// Package errorutil standardizes application errors and their HTTP mapping.
package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to callers. Nothing carrying one of these codes is
// ever auto-retried; Conflict signals a lost concurrency race so the caller
// can refresh and re-decide.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeImmutable         = "IMMUTABLE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotEligible       = "NOT_ELIGIBLE"
	CodeDuplicateRequest  = "DUPLICATE_REQUEST"
	CodeAlreadyResolved   = "ALREADY_RESOLVED"
	CodeInvalidAgent      = "INVALID_AGENT"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewImmutable flags a mutation attempt on a CLOSED ticket.
func NewImmutable(message string) error {
	return NewDomainError(CodeImmutable, message, http.StatusConflict, nil)
}

// NewInvalidTransition flags an edge missing from the status table.
func NewInvalidTransition(current, target string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("invalid status transition from %s to %s", current, target),
		http.StatusUnprocessableEntity,
		map[string]any{"current": current, "target": target})
}

// NewNotEligible flags an assignment request on a ticket that fails the
// eligibility gate.
func NewNotEligible(message string) error {
	return NewDomainError(CodeNotEligible, message, http.StatusUnprocessableEntity, nil)
}

// NewDuplicateRequest flags a second pending request from the same agent.
func NewDuplicateRequest(message string) error {
	return NewDomainError(CodeDuplicateRequest, message, http.StatusConflict, nil)
}

// NewAlreadyResolved flags approval of a request whose ticket is already
// RESOLVED or CLOSED. Informational: the caller should refresh.
func NewAlreadyResolved(message string) error {
	return NewDomainError(CodeAlreadyResolved, message, http.StatusConflict, nil)
}

// NewInvalidAgent flags a direct assignment to a principal without the
// agent role.
func NewInvalidAgent(message string) error {
	return NewDomainError(CodeInvalidAgent, message, http.StatusBadRequest, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	internal, _ := NewInternalError(err).(*DomainError)
	return internal
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
