package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// Repository is the gorm-backed order store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create writes the order and its items in one transaction and fills in the
// assigned ids. Either both land or neither does.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return ErrEmptyOrder
	}

	items := order.Items
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.Items = nil
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			order.Items = items
			return fmt.Errorf("create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		order.Items = items
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		return nil
	})
}

// Get loads an order with its items and their catalog entries.
func (r *Repository) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Item").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &order, nil
}

// Cancel moves a non-terminal order to cancelled. The status check and the
// update are one statement, so a concurrent completion cannot be overwritten.
func (r *Repository) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	terminal := []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, terminal).
		Update("status", models.OrderStatusCancelled)
	if res.Error != nil {
		return nil, fmt.Errorf("cancel order %d: %w", id, res.Error)
	}

	order, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return order, &AlreadyTerminalError{OrderID: id, Status: order.Status}
	}
	return order, nil
}

// SetStatus is used by operational tooling and tests to move an order along.
func (r *Repository) SetStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("set order %d status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
