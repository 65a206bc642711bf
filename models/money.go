package models

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers, the way clients send them.
	decimal.MarshalJSONWithoutQuotes = true
}
