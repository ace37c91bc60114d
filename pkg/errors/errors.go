// Package errors provides custom error types for the orderline system.
// These errors enable programmatic error checking across the reconciliation
// pipeline and carry the HTTP semantics the outer layer needs without
// leaking transport concerns into the core.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join aggregates multiple errors into one.
// It's an alias for the standard library errors.Join for convenience.
var Join = errors.Join

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree matching the target type.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the orderline system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrOrderNotFound indicates the parent purchase order does not exist.
	// A 404 from the order store is always translated to this, never leaked raw.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderOpen indicates the order has already been opened
	ErrOrderOpen = errors.New("order is open")

	// ErrOrderClosed indicates the order has been closed
	ErrOrderClosed = errors.New("order is closed")

	// ErrProtectedFields indicates a protected line field was modified
	ErrProtectedFields = errors.New("protected fields changed")

	// ErrFundDistributionTotal indicates fund distributions do not sum to the estimated price
	ErrFundDistributionTotal = errors.New("incorrect fund distribution total")

	// ErrPiecesNeedDeletion indicates storage holds more pieces than the line declares
	ErrPiecesNeedDeletion = errors.New("pieces to be deleted")

	// ErrIncorrectOrderID indicates the line does not belong to the given order
	ErrIncorrectOrderID = errors.New("line does not belong to order")

	// ErrMissingOrderID indicates the line carries no parent order reference
	ErrMissingOrderID = errors.New("missing order id")

	// ErrLineLimitExceeded indicates the order already holds the maximum number of lines
	ErrLineLimitExceeded = errors.New("line limit exceeded")

	// ErrTitleNotFound indicates no title record exists for the line
	ErrTitleNotFound = errors.New("title not found")

	// ErrForbidden indicates the operation is restricted by acquisition units
	ErrForbidden = errors.New("operation restricted")
)

// ValidationError represents a validation failure. Validation errors abort
// the update before any mutation and carry 422 semantics.
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Unwrap returns the wrapped cause, if any
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// OrderStateError indicates an operation was attempted against an order in
// the wrong workflow state, e.g. creating a line on a non-pending order.
type OrderStateError struct {
	OrderID string
	Status  string // workflow status the order is actually in
}

// Error implements the error interface
func (e *OrderStateError) Error() string {
	return fmt.Sprintf("order %s is in %s state", e.OrderID, e.Status)
}

// Is implements errors.Is support
func (e *OrderStateError) Is(target error) bool {
	switch strings.ToLower(e.Status) {
	case "open":
		return target == ErrOrderOpen
	case "closed":
		return target == ErrOrderClosed
	}
	return false
}

// ProtectedFieldsError reports line fields that may not change once the
// parent order has progressed past pending.
type ProtectedFieldsError struct {
	LineID string
	Fields []string
}

// Error implements the error interface
func (e *ProtectedFieldsError) Error() string {
	return fmt.Sprintf("protected fields changed on line %s: %s", e.LineID, strings.Join(e.Fields, ", "))
}

// Is implements errors.Is support
func (e *ProtectedFieldsError) Is(target error) bool {
	return target == ErrProtectedFields
}

// FundDistributionError indicates the fund distributions of a line do not
// sum exactly to its estimated price. Remaining is expressed in the
// currency's minor units (strict equality, no tolerance).
type FundDistributionError struct {
	LineID    string
	Currency  string
	Remaining int64
}

// Error implements the error interface
func (e *FundDistributionError) Error() string {
	return fmt.Sprintf("fund distributions for line %s do not total the estimated price (%d %s minor units remaining)",
		e.LineID, e.Remaining, e.Currency)
}

// Is implements errors.Is support
func (e *FundDistributionError) Is(target error) bool {
	return target == ErrFundDistributionTotal || target == ErrInvalidInput
}

// ConsistencyError indicates stored pieces disagree with the line's declared
// locations in a way that cannot be auto-repaired (pieces would have to be
// deleted, which might discard receiving history).
type ConsistencyError struct {
	LineID     string
	LocationID string
	Stored     int
	Declared   int
}

// Error implements the error interface
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("line %s has %d pieces stored at location %s but declares %d",
		e.LineID, e.Stored, e.LocationID, e.Declared)
}

// Is implements errors.Is support
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrPiecesNeedDeletion
}

// InventoryError indicates the number of inventory items created for a line
// does not match the computed expectation. It is fatal and never retried.
type InventoryError struct {
	LineID   string
	Expected int
	Created  int
}

// Error implements the error interface
func (e *InventoryError) Error() string {
	return fmt.Sprintf("error creating items for line %s: expected %d but %d created",
		e.LineID, e.Expected, e.Created)
}

// Failure records a sub-object operation that could not be completed.
type Failure struct {
	Kind string
	ID   string
	Err  error
}

// Error implements the error interface
func (f Failure) Error() string {
	if f.ID != "" {
		return fmt.Sprintf("%s %s: %v", f.Kind, f.ID, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

// Unwrap implements errors.Unwrap
func (f Failure) Unwrap() error {
	return f.Err
}

// PartialError indicates the line summary was persisted but some sub-object
// operations failed. It references every failed (kind, id) pair and carries
// 500 semantics.
type PartialError struct {
	LineID   string
	Failures []Failure
}

// Error implements the error interface
func (e *PartialError) Error() string {
	return fmt.Sprintf("line %s partially updated but %d sub-object operations failed",
		e.LineID, len(e.Failures))
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// APIError represents an error response from a remote store
type APIError struct {
	Store      string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Store, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Store, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 404 {
		return target == ErrNotFound
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(store string, statusCode int, message string) *APIError {
	return &APIError{Store: store, StatusCode: statusCode, Message: message}
}

// ResourceError represents an error during a remote resource operation
type ResourceError struct {
	Operation string // "create", "update", "delete", "fetch", "release"
	Resource  string // "line", "order", "piece", "encumbrance", "alert", ...
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   err.Error(),
		Err:       err,
	}
}

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConsistency checks if an error is a piece consistency error
func IsConsistency(err error) bool {
	return errors.Is(err, ErrPiecesNeedDeletion)
}

// IsPartial checks if an error is a partial-update error
func IsPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// IsInventory checks if an error is a fatal inventory item-count mismatch
func IsInventory(err error) bool {
	var ie *InventoryError
	return errors.As(err, &ie)
}

// IsForbidden checks if an error is an authorization error
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// HTTPStatus maps a domain error to the HTTP status the outer layer should
// report. Validation and consistency failures are 422, partial updates 500,
// missing resources 404.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return 200
	case IsPartial(err):
		return 500
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrOrderOpen),
		errors.Is(err, ErrOrderClosed),
		errors.Is(err, ErrProtectedFields),
		errors.Is(err, ErrPiecesNeedDeletion),
		errors.Is(err, ErrIncorrectOrderID),
		errors.Is(err, ErrMissingOrderID),
		errors.Is(err, ErrLineLimitExceeded),
		errors.Is(err, ErrTitleNotFound),
		errors.Is(err, ErrInvalidInput):
		return 422
	case errors.Is(err, ErrNotFound):
		return 404
	default:
		return 500
	}
}
