package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderJobValidation(t *testing.T) {
	tests := []struct {
		name       string
		productIDs []int64
		quantities []int
		wantErr    error
	}{
		{"no lines", nil, nil, ErrEmptyOrder},
		{"length mismatch", []int64{1, 2}, []int{1}, ErrLineMismatch},
		{"zero quantity", []int64{1}, []int{0}, ErrNonPositiveQuantity},
		{"negative quantity", []int64{1, 2}, []int{1, -3}, ErrNonPositiveQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrderJob(42, tt.productIDs, tt.quantities)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewOrderJobAssignsUniqueIDs(t *testing.T) {
	a, err := NewOrderJob(1, []int64{10}, []int{1})
	require.NoError(t, err)
	b, err := NewOrderJob(1, []int64{10}, []int{1})
	require.NoError(t, err)

	assert.NotEmpty(t, a.JobID)
	assert.NotEqual(t, a.JobID, b.JobID)
	assert.False(t, a.SubmittedAt.IsZero())
}

func TestOrderJobValidateRejectsMissingJobID(t *testing.T) {
	job := &OrderJob{UserID: 1, ProductIDs: []int64{10}, Quantities: []int{1}}
	assert.ErrorIs(t, job.Validate(), ErrMalformedJob)
}

func TestUniqueProductIDs(t *testing.T) {
	job := &OrderJob{ProductIDs: []int64{3, 1, 3, 2, 1}}
	assert.Equal(t, []int64{3, 1, 2}, job.UniqueProductIDs())
}

func TestBuildOrderTotal(t *testing.T) {
	job := &OrderJob{
		JobID:      "job-1",
		UserID:     7,
		ProductIDs: []int64{10, 20},
		Quantities: []int{3, 2},
	}
	products := map[int64]*Product{
		10: {ID: 10, Name: "Widget", Price: decimal.RequireFromString("19.99"), Stock: 5},
		20: {ID: 20, Name: "Gadget", Price: decimal.RequireFromString("4.50"), Stock: 5},
	}

	order, err := BuildOrder(job, products)
	require.NoError(t, err)

	assert.Equal(t, "job-1", order.ID)
	assert.Equal(t, int64(7), order.UserID)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(10), order.Lines[0].ProductID)
	assert.True(t, order.Lines[0].UnitPrice.Equal(decimal.RequireFromString("19.99")))
	// 3×19.99 + 2×4.50 = 68.97
	assert.True(t, order.Total.Equal(decimal.RequireFromString("68.97")),
		"got total %s", order.Total)
}

func TestBuildOrderMissingProduct(t *testing.T) {
	job := &OrderJob{JobID: "job-2", ProductIDs: []int64{10}, Quantities: []int{1}}
	_, err := BuildOrder(job, map[int64]*Product{})
	assert.ErrorIs(t, err, ErrProductsNotFound)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ProductName: "Widget", Requested: 6, Available: 4}
	assert.Contains(t, err.Error(), "Widget")
	assert.Contains(t, err.Error(), "requested 6")
	assert.Contains(t, err.Error(), "available 4")
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(ErrUserNotFound))
	assert.True(t, IsTerminal(ErrProductsNotFound))
	assert.True(t, IsTerminal(ErrMalformedJob))
	assert.True(t, IsTerminal(&InsufficientStockError{ProductName: "Widget"}))
	assert.True(t, IsTerminal(errors.Wrap(ErrUserNotFound, "processing job")))

	assert.False(t, IsTerminal(errors.New("connection refused")))
	assert.False(t, IsTerminal(ErrQueueUnavailable))
}
