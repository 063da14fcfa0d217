package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// Database models. Kept separate from the domain entities and converted
// through the mapper so GORM tags never leak into the domain.

type UserModel struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

type ProductModel struct {
	ID        int64           `gorm:"primaryKey"`
	Name      string          `gorm:"size:255;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock     int             `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProductModel) TableName() string { return "products" }

// OrderModel's primary key is the job ID, which is what makes a redelivered
// job's insert collide instead of double-committing.
type OrderModel struct {
	ID        string          `gorm:"primaryKey;size:36"`
	UserID    int64           `gorm:"index;not null"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
	Items     []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string { return "orders" }

type OrderItemModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   string          `gorm:"size:36;index;not null"`
	ProductID int64           `gorm:"not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Position  int             `gorm:"not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }
