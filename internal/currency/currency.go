// Package currency maps a shipping country to the currency amounts are shown
// in. Stored amounts are always in the base currency; conversion is for display
// only.
package currency

import (
	"github.com/shopspring/decimal"
)

const (
	UAE = "الإمارات"

	LabelAED = "د.إ"
	LabelOMR = "ر.ع."
)

var aedRate = decimal.RequireFromString("9.5")

// Rate returns the display label and multiplier for country. Every country
// other than UAE, including "", uses the base currency.
func Rate(country string) (string, decimal.Decimal) {
	if country == UAE {
		return LabelAED, aedRate
	}
	return LabelOMR, decimal.NewFromInt(1)
}

// Convert returns amount in the display currency of country.
func Convert(amount decimal.Decimal, country string) decimal.Decimal {
	_, rate := Rate(country)
	return amount.Mul(rate)
}

// Format renders amount for country with two decimals and the currency label.
func Format(amount decimal.Decimal, country string) string {
	label, rate := Rate(country)
	return amount.Mul(rate).StringFixed(2) + " " + label
}

// Amount is a converted amount ready to be rendered.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func Display(amount decimal.Decimal, country string) Amount {
	label, rate := Rate(country)
	return Amount{Value: amount.Mul(rate).StringFixed(2), Currency: label}
}
