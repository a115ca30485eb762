package apperrors

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCart is returned when order creation is attempted with no
	// cart items for the buyer.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOrderNotFound is returned when an order id resolves to nothing.
	ErrOrderNotFound = errors.New("order not found")

	// ErrConcurrencyConflict marks the case where an inner scope already
	// committed or rolled back the shared transaction.
	ErrConcurrencyConflict = errors.New("transaction already resolved by an inner scope")
)

// ValidationError reports malformed input on an operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientInventoryError carries every product short on stock so the
// caller can surface all of them at once.
type InsufficientInventoryError struct {
	Products []string
}

func (e *InsufficientInventoryError) Error() string {
	return "insufficient stock for products: " + strings.Join(e.Products, ", ")
}

// PersistenceError wraps an underlying store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err with the operation that failed.
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsConcurrencyConflict reports whether err means the transaction was
// already resolved by another scope. Callers absorb this instead of
// re-raising it.
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, sql.ErrTxDone)
}
