package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrProductsNotFound    = errors.New("products not found")
	ErrEmptyOrder          = errors.New("order has no lines")
	ErrLineMismatch        = errors.New("product ids and quantities differ in length")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrMalformedJob        = errors.New("malformed order job")
	ErrAlreadyProcessed    = errors.New("job already processed")
	ErrQueueUnavailable    = errors.New("order queue unavailable")
	ErrStatusNotFound      = errors.New("job status not found")
)

// InsufficientStockError reports the first line whose stock check failed.
// It is an expected outcome of racing orders, not an infrastructure fault,
// so it is never retried.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// IsTerminal reports whether err can never be fixed by retrying the same
// job. Everything else is treated as transient infrastructure trouble.
func IsTerminal(err error) bool {
	var insufficient *InsufficientStockError
	if errors.As(err, &insufficient) {
		return true
	}
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProductsNotFound) ||
		errors.Is(err, ErrEmptyOrder) ||
		errors.Is(err, ErrLineMismatch) ||
		errors.Is(err, ErrNonPositiveQuantity) ||
		errors.Is(err, ErrMalformedJob)
}
