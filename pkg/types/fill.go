package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is a single execution report against an OrderRecord. A partially
// filled order accumulates more than one Fill.
type Fill struct {
	FillID    string          `json:"fill_id" yaml:"fill_id"`
	OrderID   string          `json:"order_id" yaml:"order_id"`
	Ts        time.Time       `json:"ts" yaml:"ts"`
	Symbol    string          `json:"symbol" yaml:"symbol"`
	Side      Side            `json:"side" yaml:"side"`
	Qty       decimal.Decimal `json:"qty" yaml:"qty"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	Fee       decimal.Decimal `json:"fee" yaml:"fee"`
	Liquidity string          `json:"liquidity,omitempty" yaml:"liquidity,omitempty"`
}

// SignedQty returns Qty for a buy fill and -Qty for a sell fill, the form
// the portfolio ledger accumulates directly into a position.
func (f Fill) SignedQty() decimal.Decimal {
	if f.Side == SideSell {
		return f.Qty.Neg()
	}

	return f.Qty
}
