// Package pricing computes cart and order totals. Summarize is the only
// place the tax formula lives; the cart summary and checkout both call it.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/huertohogar/huerto/app/models"
)

// TaxRate is the fixed VAT applied to every purchase.
var TaxRate = decimal.NewFromFloat(0.19)

// Summary is the priced view of a set of cart lines.
type Summary struct {
	Items    int     `json:"items"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Summarize returns subtotal = Σ quantity*unitPrice, tax = subtotal*TaxRate
// and total = subtotal+tax.
func Summarize(lines []models.CartLine) Summary {
	subtotal := decimal.Zero
	items := 0
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal = subtotal.Add(decimal.NewFromFloat(l.UnitPrice).Mul(qty))
		items += l.Quantity
	}

	tax := subtotal.Mul(TaxRate)
	total := subtotal.Add(tax)

	return Summary{
		Items:    items,
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}
