package orders

import (
	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/shopspring/decimal"
)

// MaxAmount is the exclusive upper bound of a NUMERIC(10,2) money column.
var MaxAmount = decimal.New(1, 8)

func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price)
	}
	return sum
}

// Totals returns the discount and final total for items under promo (nil = no promo).
// The discount never exceeds the subtotal, so the total is never negative.
func Totals(items []Item, promo *promos.PromoCode) (discount, total decimal.Decimal) {
	subtotal := Subtotal(items)
	discount = decimal.Zero
	if promo != nil {
		discount = promo.Discount(subtotal)
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
		if discount.IsNegative() {
			discount = decimal.Zero
		}
	}
	return discount, subtotal.Sub(discount)
}

func decimalInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
