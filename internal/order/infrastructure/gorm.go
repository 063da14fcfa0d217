// Package infrastructure implements the domain ports: MySQL repositories,
// the in-memory backend, the Redis status store, and the Kafka adapters.
package infrastructure

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"stockpile/internal/order/domain"
)

// NewMySQL opens the database with error translation enabled so duplicate
// keys surface as gorm.ErrDuplicatedKey.
func NewMySQL(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if autoMigrate {
		if err := db.AutoMigrate(&UserModel{}, &ProductModel{}, &OrderModel{}, &OrderItemModel{}); err != nil {
			return nil, errors.Wrap(err, "auto-migrate schema")
		}
	}
	return db, nil
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, errors.Wrapf(err, "find user %d", id)
	}
	return toDomainUser(&m), nil
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	out := make([]*domain.Product, 0, len(models))
	for i := range models {
		out = append(out, toDomainProduct(&models[i]))
	}
	return out, nil
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// CommitOrder runs the whole job in one transaction. The order row is
// inserted first: a redelivered, already-committed job trips the primary-key
// collision here and rolls back before any stock changes. Each line then
// decrements conditionally (stock >= quantity), so two jobs racing for the
// same product serialize on the row and can never overdraw it. Any failed
// line aborts the transaction, undoing every earlier decrement.
func (r *GormOrderRepository) CommitOrder(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := toOrderModel(order)
		if err := tx.Create(model).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyProcessed
			}
			return errors.Wrap(err, "insert order")
		}

		for _, line := range order.Lines {
			res := tx.Model(&ProductModel{}).
				Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return errors.Wrapf(res.Error, "decrement stock for product %d", line.ProductID)
			}
			if res.RowsAffected == 0 {
				var p ProductModel
				if err := tx.First(&p, "id = ?", line.ProductID).Error; err != nil {
					if stderrors.Is(err, gorm.ErrRecordNotFound) {
						return domain.ErrProductsNotFound
					}
					return errors.Wrapf(err, "read product %d after failed decrement", line.ProductID)
				}
				return &domain.InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   line.Quantity,
					Available:   p.Stock,
				}
			}
		}
		return nil
	})
}

func (r *GormOrderRepository) FindByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find orders for user %d", userID)
	}
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, toDomainOrder(&models[i]))
	}
	return out, nil
}
