package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confirmation is the ledger row written once per completed order.
type Confirmation struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ReferenceID string          `json:"reference_id"`
	Status      OrderStatus     `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Country     string          `json:"country"`
	Email       string          `json:"email"`
	Items       []OrderItem     `json:"items"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}
