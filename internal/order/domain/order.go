// Package domain holds the order-fulfillment entities, events, and the
// ports implemented by the infrastructure layer.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry with sellable stock. Stock is only mutated by
// the processing worker, through an atomic conditional decrement.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

// User is the order submitter. Managed elsewhere; read-only here.
type User struct {
	ID    int64
	Name  string
	Email string
}

// OrderLine pairs a product with the quantity bought and the unit price at
// processing time.
type OrderLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is the finalized record of one processed job. ID equals the job ID,
// which makes the order insert itself the idempotency check: a redelivered
// job collides on the primary key before any stock is touched.
type Order struct {
	ID        string
	UserID    int64
	Lines     []OrderLine
	Total     decimal.Decimal
	CreatedAt time.Time
}

// BuildOrder assembles an order from a job and its resolved products,
// computing the total from prices as of now. Lines keep the job's order.
func BuildOrder(job *OrderJob, products map[int64]*Product) (*Order, error) {
	lines := make([]OrderLine, 0, len(job.ProductIDs))
	total := decimal.Zero
	for i, id := range job.ProductIDs {
		p, ok := products[id]
		if !ok {
			return nil, ErrProductsNotFound
		}
		qty := job.Quantities[i]
		lines = append(lines, OrderLine{ProductID: id, Quantity: qty, UnitPrice: p.Price})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return &Order{
		ID:        job.JobID,
		UserID:    job.UserID,
		Lines:     lines,
		Total:     total,
		CreatedAt: time.Now(),
	}, nil
}
