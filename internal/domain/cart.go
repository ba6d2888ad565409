package domain

import "github.com/shopspring/decimal"

// LineKey identifies a cart line: the same product with a different variant
// selection is a different line.
type LineKey struct {
	ProductID     string `json:"productId"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

type CartLine struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	UnitPriceBase decimal.Decimal `json:"unitPriceBase"`
	Quantity      int             `json:"quantity"`
	Image         string          `json:"image"`
	SelectedSize  string          `json:"selectedSize"`
	SelectedColor string          `json:"selectedColor"`
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, SelectedSize: l.SelectedSize, SelectedColor: l.SelectedColor}
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPriceBase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CheckoutProduct is one payload line. Price is in the base currency.
type CheckoutProduct struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Image         string          `json:"image"`
	SelectedSize  string          `json:"selectedSize"`
	SelectedColor string          `json:"selectedColor"`
}

type CheckoutPayload struct {
	Products      []CheckoutProduct `json:"products"`
	CustomerName  string            `json:"customerName"`
	CustomerPhone string            `json:"customerPhone"`
	Email         string            `json:"email"`
	Country       string            `json:"country"`
	Wilayat       string            `json:"wilayat"`
	Address       string            `json:"address"`
	ShippingFee   decimal.Decimal   `json:"shippingFee"`
	Note          string            `json:"note"`
}
