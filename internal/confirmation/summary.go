package confirmation

import (
	"time"

	"github.com/joao-fontenele/storefront/internal/currency"
	"github.com/joao-fontenele/storefront/internal/domain"
)

// Summary is the display view of an order's amounts, converted for the
// order's stored country.
type Summary struct {
	Subtotal  currency.Amount `json:"subtotal"`
	Shipping  currency.Amount `json:"shipping"`
	Total     currency.Amount `json:"total"`
	Email     string          `json:"email"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewSummary(o *domain.Order) Summary {
	return Summary{
		Subtotal:  currency.Display(o.Subtotal(), o.Country),
		Shipping:  currency.Display(o.ShippingFee, o.Country),
		Total:     currency.Display(o.Amount, o.Country),
		Email:     o.Email,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}
