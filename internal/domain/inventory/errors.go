package inventory

import (
	"errors"
	"fmt"
)

// Kind sentinels. Concrete errors wrap one of these so callers can branch on the kind.
var (
	ErrValidation  = errors.New("validation failed")
	ErrPersistence = errors.New("persistence failed")
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrEmptyName         = fmt.Errorf("%w: inventory: product name is required", ErrValidation)
	ErrInvalidQuantity   = fmt.Errorf("%w: inventory: quantity cannot be negative", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: inventory: amount must be greater than zero", ErrValidation)
	ErrInvalidPrice      = fmt.Errorf("%w: inventory: unit price cannot be negative", ErrValidation)
)

const (
	FailureReasonNotFound          = "not_found"
	FailureReasonInsufficientStock = "insufficient_stock"
	FailureReasonValidation        = "validation"
	FailureReasonPersistenceError  = "persist_error"
)

// FailureReason maps an error to a low-cardinality reason suitable for logs and metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return FailureReasonNotFound
	case errors.Is(err, ErrInsufficientStock):
		return FailureReasonInsufficientStock
	case errors.Is(err, ErrValidation):
		return FailureReasonValidation
	case errors.Is(err, ErrPersistence):
		return FailureReasonPersistenceError
	default:
		return "internal"
	}
}
