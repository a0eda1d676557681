package orders

import (
	"github.com/shopspring/decimal"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// DefaultSizeDelta is what size S takes off and size L adds to a base price.
var DefaultSizeDelta = decimal.NewFromInt(10000)

// AdjustPrice applies the size customization to a base catalog price.
// Sizes other than S and L, including none, leave the price unchanged.
func AdjustPrice(base decimal.Decimal, c models.Customizations, delta decimal.Decimal) decimal.Decimal {
	switch c.Size() {
	case "S":
		return base.Sub(delta)
	case "L":
		return base.Add(delta)
	default:
		return base
	}
}
