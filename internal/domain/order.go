package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// OrderItem is the snapshot of a purchased line as the order API stored it.
type OrderItem struct {
	ProductID     string `json:"productId"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	Image         string `json:"image"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

// Order is owned by the order API. Amounts are in the base currency.
type Order struct {
	ID            string          `json:"id"`
	Status        OrderStatus     `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Email         string          `json:"email"`
	Country       string          `json:"country"`
	Wilayat       string          `json:"wilayat"`
	Products      []OrderItem     `json:"products"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (o *Order) Completed() bool {
	return o != nil && o.Status == OrderStatusCompleted
}

// Subtotal is the order amount without shipping.
func (o *Order) Subtotal() decimal.Decimal {
	return o.Amount.Sub(o.ShippingFee)
}

// EnrichedOrderLine joins an order snapshot line with the live product record.
// Quantity, SelectedSize and SelectedColor always come from the snapshot.
type EnrichedOrderLine struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Image         []string `json:"image"`
	Quantity      int      `json:"quantity"`
	SelectedSize  string   `json:"selectedSize"`
	SelectedColor string   `json:"selectedColor"`
	Degraded      bool     `json:"degraded"`
}
