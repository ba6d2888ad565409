package domain

import "github.com/shopspring/decimal"

func init() {
	// The order API speaks JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}
