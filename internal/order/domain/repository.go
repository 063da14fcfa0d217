package domain

import "context"

// UserRepository reads the user catalog.
type UserRepository interface {
	// FindByID returns ErrUserNotFound when the user does not exist.
	FindByID(ctx context.Context, id int64) (*User, error)
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	// FindByIDs returns the products that exist among ids; callers compare
	// cardinality against the request to detect missing products.
	FindByIDs(ctx context.Context, ids []int64) ([]*Product, error)
}

// OrderRepository persists finalized orders.
type OrderRepository interface {
	// CommitOrder atomically decrements stock for every line and inserts
	// the order, all-or-nothing: a failed line rolls back every earlier
	// decrement. Returns ErrAlreadyProcessed when an order with the same ID
	// was committed before (redelivered job), and *InsufficientStockError
	// when a line's conditional decrement finds too little stock.
	CommitOrder(ctx context.Context, order *Order) error

	// FindByUser returns the user's persisted orders, newest first.
	FindByUser(ctx context.Context, userID int64) ([]*Order, error)
}

// JobProducer enqueues jobs for asynchronous processing.
type JobProducer interface {
	// Enqueue returns an error wrapping ErrQueueUnavailable when the
	// backing queue cannot accept the job; the submission must then fail
	// rather than report a false accept.
	Enqueue(ctx context.Context, job *OrderJob) error
}

// JobStatusStore records the observable outcome of each job. MarkProcessed
// and AlreadyProcessed are a redelivery fast path only; correctness of
// idempotent redelivery rests on CommitOrder's duplicate-key check.
type JobStatusStore interface {
	SetStatus(ctx context.Context, status JobStatus) error
	// GetStatus returns ErrStatusNotFound for unknown job IDs.
	GetStatus(ctx context.Context, jobID string) (JobStatus, error)
	MarkProcessed(ctx context.Context, jobID string) error
	AlreadyProcessed(ctx context.Context, jobID string) (bool, error)
}
