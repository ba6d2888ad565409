package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderConfirmedEvent struct {
	OrderID      string          `json:"order_id"`
	ReferenceID  string          `json:"reference_id"`
	Email        string          `json:"email"`
	CustomerName string          `json:"customer_name"`
	Country      string          `json:"country"`
	Amount       decimal.Decimal `json:"amount"`
	ShippingFee  decimal.Decimal `json:"shipping_fee"`
	Items        []OrderItem     `json:"items"`
	Timestamp    time.Time       `json:"timestamp"`
}
