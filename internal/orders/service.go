// Package orders validates, prices and records customer orders.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/catalog"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// Catalog is the part of the menu lookup the order path needs.
type Catalog interface {
	GetExactItem(ctx context.Context, title string) (models.MenuItem, error)
	GetItemsByTitle(ctx context.Context, title string) ([]models.MenuItem, error)
}

// Store persists orders. *Repository implements it.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uint) (*models.Order, error)
	Cancel(ctx context.Context, id uint) (*models.Order, error)
}

// LineRequest is one requested line as the model supplies it.
type LineRequest struct {
	ItemName       string                `json:"item_name"`
	Quantity       int                   `json:"quantity"`
	Customizations models.Customizations `json:"customizations,omitempty"`
}

// ValidatedLine is a line resolved against the catalog and priced.
type ValidatedLine struct {
	Item           models.MenuItem
	Quantity       int
	Customizations models.Customizations
	UnitPrice      decimal.Decimal
}

func (l ValidatedLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Confirmation describes a committed order.
type Confirmation struct {
	OrderID    uint
	CustomerID string
	TotalPrice decimal.Decimal
	OrderTime  time.Time
	Lines      []ValidatedLine
}

type Option func(*Service)

// WithSizeDelta overrides DefaultSizeDelta.
func WithSizeDelta(d decimal.Decimal) Option {
	return func(s *Service) { s.sizeDelta = d }
}

// WithClock replaces time.Now for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	catalog   Catalog
	store     Store
	sizeDelta decimal.Decimal
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewService(cat Catalog, store Store, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		catalog:   cat,
		store:     store,
		sizeDelta: DefaultSizeDelta,
		now:       time.Now,
		log:       logging.Component(log, "orders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder resolves and prices every line first; nothing is written unless
// all of them resolve. A missing or zero quantity means one.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, lines []LineRequest) (*Confirmation, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	validated := make([]ValidatedLine, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		v, err := s.validate(ctx, line)
		if err != nil {
			s.log.WithError(err).WithField("item", line.ItemName).Warn("Order rejected")
			return nil, err
		}
		total = total.Add(v.Total())
		validated = append(validated, v)
	}

	order := &models.Order{
		CustomerID: customerID,
		Status:     models.OrderStatusPending,
		TotalPrice: total,
		OrderTime:  s.now(),
		Items:      make([]models.OrderItem, 0, len(validated)),
	}
	for _, v := range validated {
		order.Items = append(order.Items, models.OrderItem{
			ItemID:         v.Item.ID,
			Quantity:       v.Quantity,
			Customizations: v.Customizations.Encode(),
		})
	}

	if err := s.store.Create(ctx, order); err != nil {
		s.log.WithError(err).WithField("customer_id", customerID).Error("Failed to record order")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"customer_id": customerID,
		"total":       total.String(),
		"lines":       len(validated),
	}).Info("Order placed")

	return &Confirmation{
		OrderID:    order.ID,
		CustomerID: customerID,
		TotalPrice: total,
		OrderTime:  order.OrderTime,
		Lines:      validated,
	}, nil
}

func (s *Service) validate(ctx context.Context, line LineRequest) (ValidatedLine, error) {
	name := strings.TrimSpace(line.ItemName)
	if line.Quantity < 0 {
		return ValidatedLine{}, &InvalidQuantityError{Name: name, Quantity: line.Quantity}
	}
	qty := line.Quantity
	if qty == 0 {
		qty = 1
	}

	item, err := s.resolve(ctx, name)
	if err != nil {
		return ValidatedLine{}, err
	}

	custom := line.Customizations
	if custom == nil {
		custom = models.Customizations{}
	}
	return ValidatedLine{
		Item:           item,
		Quantity:       qty,
		Customizations: custom,
		UnitPrice:      AdjustPrice(item.Price, custom, s.sizeDelta),
	}, nil
}

// resolve tries the exact title, then a case-insensitive match.
func (s *Service) resolve(ctx context.Context, name string) (models.MenuItem, error) {
	if name == "" {
		return models.MenuItem{}, &ItemNotFoundError{Name: name}
	}

	item, err := s.catalog.GetExactItem(ctx, name)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return models.MenuItem{}, err
	}

	items, err := s.catalog.GetItemsByTitle(ctx, name)
	if err != nil {
		return models.MenuItem{}, err
	}
	if len(items) == 0 {
		return models.MenuItem{}, &ItemNotFoundError{Name: name}
	}
	return items[0], nil
}

func (s *Service) GetOrderStatus(ctx context.Context, id uint) (*models.Order, error) {
	return s.store.Get(ctx, id)
}

// CancelOrder fails with *AlreadyTerminalError for completed or cancelled
// orders and with ErrOrderNotFound for unknown ids.
func (s *Service) CancelOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.store.Cancel(ctx, id)
	if err != nil {
		var terminal *AlreadyTerminalError
		if errors.As(err, &terminal) {
			s.log.WithFields(logrus.Fields{"order_id": id, "status": terminal.Status}).Info("Cancellation refused")
		}
		return nil, err
	}
	s.log.WithField("order_id", id).Info("Order cancelled")
	return order, nil
}
