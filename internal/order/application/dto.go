package application

import (
	"time"

	"github.com/shopspring/decimal"

	"stockpile/internal/order/domain"
)

// PlaceOrderRequest is the inbound submission payload. ProductIDs[i] pairs
// with Quantities[i].
type PlaceOrderRequest struct {
	UserID     int64   `json:"userId"`
	ProductIDs []int64 `json:"productIds"`
	Quantities []int   `json:"quantities"`
}

// PlaceOrderResponse acknowledges a submission. Accepted means enqueued,
// not fulfilled; JobID is the handle for the status lookup.
type PlaceOrderResponse struct {
	Accepted bool   `json:"accepted"`
	JobID    string `json:"jobId,omitempty"`
	Message  string `json:"message"`
}

// OrderLineView and OrderView shape persisted orders for the read API.
type OrderLineView struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type OrderView struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	Lines     []OrderLineView `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toOrderView(o *domain.Order) OrderView {
	lines := make([]OrderLineView, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineView{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return OrderView{
		ID:        o.ID,
		UserID:    o.UserID,
		Lines:     lines,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}
