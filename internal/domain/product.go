package domain

import "github.com/shopspring/decimal"

// Product is the canonical catalog record. Adapters normalize every upstream
// response shape into this one.
type Product struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price"`
	RegularPrice *decimal.Decimal `json:"regularPrice,omitempty"`
	OldPrice     *decimal.Decimal `json:"oldPrice,omitempty"`
	Image        []string         `json:"image"`
	Sizes        []string         `json:"sizes"`
	Colors       []string         `json:"colors"`
}

// SellingPrice prefers the regular price over the listed price.
func (p Product) SellingPrice() decimal.Decimal {
	if p.RegularPrice != nil && p.RegularPrice.IsPositive() {
		return *p.RegularPrice
	}
	return p.Price
}

// DiscountPercent is the rounded discount against OldPrice, or 0 when there is
// no real discount.
func (p Product) DiscountPercent() int64 {
	price := p.SellingPrice()
	if p.OldPrice == nil || !p.OldPrice.GreaterThan(price) {
		return 0
	}
	return p.OldPrice.Sub(price).Div(*p.OldPrice).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FirstImage returns the first image or "".
func (p Product) FirstImage() string {
	if len(p.Image) == 0 {
		return ""
	}
	return p.Image[0]
}
