package orders

import (
	"errors"
	"fmt"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

var (
	ErrEmptyOrder    = errors.New("order has no items")
	ErrOrderNotFound = errors.New("order not found")
)

// ItemNotFoundError aborts a placement before anything is written.
type ItemNotFoundError struct {
	Name string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %q not found", e.Name)
}

type InvalidQuantityError struct {
	Name     string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for %q", e.Quantity, e.Name)
}

// AlreadyTerminalError is returned when cancelling a completed or cancelled
// order. The order is left untouched.
type AlreadyTerminalError struct {
	OrderID uint
	Status  models.OrderStatus
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("order %d is already %s", e.OrderID, e.Status)
}
