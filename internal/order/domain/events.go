package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderJob is the payload placed on the queue. Immutable once enqueued.
// ProductIDs[i] pairs with Quantities[i]. JobID is minted at submission and
// doubles as the idempotency key under at-least-once delivery.
type OrderJob struct {
	JobID       string    `json:"jobId"`
	UserID      int64     `json:"userId"`
	ProductIDs  []int64   `json:"productIds"`
	Quantities  []int     `json:"quantities"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewOrderJob validates the requested lines and builds a job with a fresh ID.
func NewOrderJob(userID int64, productIDs []int64, quantities []int) (*OrderJob, error) {
	if len(productIDs) == 0 {
		return nil, ErrEmptyOrder
	}
	if len(productIDs) != len(quantities) {
		return nil, ErrLineMismatch
	}
	for _, q := range quantities {
		if q <= 0 {
			return nil, ErrNonPositiveQuantity
		}
	}
	return &OrderJob{
		JobID:       uuid.New().String(),
		UserID:      userID,
		ProductIDs:  productIDs,
		Quantities:  quantities,
		SubmittedAt: time.Now(),
	}, nil
}

// Validate re-checks an already-built job, guarding the worker against
// malformed payloads arriving off the wire.
func (j *OrderJob) Validate() error {
	if j.JobID == "" {
		return ErrMalformedJob
	}
	if len(j.ProductIDs) == 0 {
		return ErrEmptyOrder
	}
	if len(j.ProductIDs) != len(j.Quantities) {
		return ErrLineMismatch
	}
	for _, q := range j.Quantities {
		if q <= 0 {
			return ErrNonPositiveQuantity
		}
	}
	return nil
}

// UniqueProductIDs returns the distinct product IDs, first-seen order.
func (j *OrderJob) UniqueProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(j.ProductIDs))
	out := make([]int64, 0, len(j.ProductIDs))
	for _, id := range j.ProductIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
