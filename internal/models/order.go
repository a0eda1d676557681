package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CustomerID string          `gorm:"type:varchar(255);not null;index" json:"customer_id"`
	Status     OrderStatus     `gorm:"type:varchar(50);not null;default:'pending'" json:"status"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	OrderTime  time.Time       `gorm:"not null" json:"order_time"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	OrderID        uint     `gorm:"not null;index" json:"order_id"`
	ItemID         uint     `gorm:"not null" json:"item_id"`
	Item           MenuItem `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Quantity       int      `gorm:"not null;default:1" json:"quantity"`
	Customizations string   `gorm:"type:text" json:"customizations"`
}

func (OrderItem) TableName() string { return "order_items" }

// Customizations maps an attribute (size, ice, sugar, milk_type, ...) to its
// value. Non-string JSON scalars are accepted and kept in their text form.
type Customizations map[string]string

func (c *Customizations) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Customizations, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			out[k] = strings.Join(parts, ", ")
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	*c = out
	return nil
}

// Encode returns the canonical key-sorted JSON form stored on order items.
func (c Customizations) Encode() string {
	if len(c) == 0 {
		return "{}"
	}
	// encoding/json sorts map keys, which makes the output canonical.
	data, err := json.Marshal(map[string]string(c))
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Size returns the normalized size option, "" when absent.
func (c Customizations) Size() string {
	return strings.ToUpper(strings.TrimSpace(c["size"]))
}

func DecodeCustomizations(s string) (Customizations, error) {
	if strings.TrimSpace(s) == "" {
		return Customizations{}, nil
	}
	var c Customizations
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, fmt.Errorf("decode customizations: %w", err)
	}
	return c, nil
}
