package infrastructure

import (
	"sort"

	"stockpile/internal/order/domain"
)

func toDomainUser(m *UserModel) *domain.User {
	return &domain.User{ID: m.ID, Name: m.Name, Email: m.Email}
}

func toDomainProduct(m *ProductModel) *domain.Product {
	return &domain.Product{ID: m.ID, Name: m.Name, Price: m.Price, Stock: m.Stock}
}

func toOrderModel(o *domain.Order) *OrderModel {
	items := make([]OrderItemModel, 0, len(o.Lines))
	for i, l := range o.Lines {
		items = append(items, OrderItemModel{
			OrderID:   o.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Position:  i,
		})
	}
	return &OrderModel{
		ID:        o.ID,
		UserID:    o.UserID,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
		Items:     items,
	}
}

func toDomainOrder(m *OrderModel) *domain.Order {
	// Items come back in arbitrary order; Position restores line order.
	sort.Slice(m.Items, func(i, j int) bool { return m.Items[i].Position < m.Items[j].Position })
	lines := make([]domain.OrderLine, 0, len(m.Items))
	for _, it := range m.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return &domain.Order{
		ID:        m.ID,
		UserID:    m.UserID,
		Lines:     lines,
		Total:     m.Total,
		CreatedAt: m.CreatedAt,
	}
}
