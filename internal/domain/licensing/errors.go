package licensing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/umkm/backend/internal/domain/shared"
)

// ValidationError reports malformed caller input
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return shared.NewDomainError(shared.CodeValidation, e.Error())
}

// InvalidTransitionError reports an action that the current status does not permit
type InvalidTransitionError struct {
	Current ApplicationStatus
	Action  Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s application in %s status", e.Action, e.Current)
}

func (e *InvalidTransitionError) Unwrap() error {
	return shared.NewDomainError(shared.CodeInvalidState, e.Error())
}

// CapacityError reports a reviewer whose workload cap is reached
type CapacityError struct {
	ReviewerID uuid.UUID
	Workload   int64
	Limit      int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("reviewer %s already holds %d of %d active applications", e.ReviewerID, e.Workload, e.Limit)
}

func (e *CapacityError) Unwrap() error {
	return shared.NewDomainError(shared.CodeCapacityExceeded, e.Error())
}

// NotFoundError reports a missing resource
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return shared.NewDomainError(shared.CodeNotFound, e.Error())
}

// ConflictError reports a write that lost an optimistic-concurrency race.
// The caller should reload the application and retry.
type ConflictError struct {
	ApplicationID  uuid.UUID
	ExpectedStatus ApplicationStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("application %s was modified concurrently (expected status %s)", e.ApplicationID, e.ExpectedStatus)
}

func (e *ConflictError) Unwrap() error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict, e.Error())
}

// Retryable is always true for conflicts
func (e *ConflictError) Retryable() bool {
	return true
}

// StoreError wraps an underlying persistence failure
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a StoreError for operation op
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{shared.NewDomainError(shared.CodeStoreFailure, "Failed to "+e.Op), e.Err}
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}

// ErrNotOwner is returned when a caller acts on another applicant's application
var ErrNotOwner = shared.NewDomainError(shared.CodeForbidden, "Only the applicant may perform this action")
