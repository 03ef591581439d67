// Package utils holds small numeric helpers shared by the sizing and
// engine packages that do not warrant their own package.
package utils

import (
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-trading/pkg/policy"
)

// CalculateMaxQuantity returns a quantity purchasable with balance at
// price once cost.Commission is added: starting from balance/price,
// while the total exceeds balance it lowers the quantity by the
// overshoot divided by price (at most 10 steps).
func CalculateMaxQuantity(balance, price decimal.Decimal, cost policy.CostPolicy) decimal.Decimal {
	if !price.IsPositive() || !balance.IsPositive() {
		return decimal.Zero
	}

	qty := balance.Div(price)

	for i := 0; i < 10; i++ {
		totalCost := qty.Mul(price).Add(cost.Commission(qty.Mul(price)))
		if totalCost.LessThanOrEqual(balance) {
			break
		}

		qty = qty.Sub(totalCost.Sub(balance).Div(price))
	}

	return qty
}

// RoundToDecimalPrecision truncates quantity toward zero at
// decimalPrecision digits, matching a venue's lot-size rounding.
func RoundToDecimalPrecision(quantity decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return quantity.Truncate(decimalPrecision)
}

// CalculateOrderQuantityByPercentage sizes an order at percentage of
// balance, then applies the same fee-aware convergence as
// CalculateMaxQuantity.
func CalculateOrderQuantityByPercentage(balance, price decimal.Decimal, cost policy.CostPolicy, percentage decimal.Decimal) decimal.Decimal {
	return CalculateMaxQuantity(balance.Mul(percentage), price, cost)
}
