package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the net holding of one symbol, cost-basis tracked at
// weighted-average price.
type Position struct {
	Symbol        string          `json:"symbol" yaml:"symbol"`
	Qty           decimal.Decimal `json:"qty" yaml:"qty"`
	AvgPrice      decimal.Decimal `json:"avg_price" yaml:"avg_price"`
	MarkPrice     decimal.Decimal `json:"mark_price" yaml:"mark_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl" yaml:"realized_pnl"`
}

// ApplyFill folds a Fill into the position's weighted-average cost basis,
// realizing PnL on the portion of the fill that reduces or reverses the
// existing position. It returns the updated Position; the receiver is
// never mutated in place so callers can treat portfolio state as
// immutable snapshots.
func (p Position) ApplyFill(f Fill) Position {
	signed := f.SignedQty()
	next := p

	sameDirection := p.Qty.IsZero() || p.Qty.Sign() == signed.Sign()

	switch {
	case sameDirection:
		totalQty := p.Qty.Add(signed)
		if totalQty.IsZero() {
			next.AvgPrice = decimal.Zero
		} else {
			priorCost := p.AvgPrice.Mul(p.Qty.Abs())
			addedCost := f.Price.Mul(signed.Abs())
			next.AvgPrice = priorCost.Add(addedCost).Div(totalQty.Abs())
		}

		next.Qty = totalQty
	default:
		closingQty := decimal.Min(p.Qty.Abs(), signed.Abs())
		pnlPerUnit := f.Price.Sub(p.AvgPrice)
		if p.Qty.IsNegative() {
			pnlPerUnit = p.AvgPrice.Sub(f.Price)
		}

		next.RealizedPnL = p.RealizedPnL.Add(pnlPerUnit.Mul(closingQty))
		next.Qty = p.Qty.Add(signed)

		if next.Qty.Sign() != p.Qty.Sign() && !next.Qty.IsZero() {
			next.AvgPrice = f.Price
		} else if next.Qty.IsZero() {
			next.AvgPrice = decimal.Zero
		}
	}

	return next
}

// PortfolioState is the point-in-time snapshot the artifact writer and
// risk monitor both consume. Equity must always equal Cash plus the
// mark-to-market value of every open position.
type PortfolioState struct {
	Ts         time.Time                  `json:"ts" yaml:"ts"`
	Cash       decimal.Decimal            `json:"cash" yaml:"cash"`
	Positions  map[string]Position        `json:"positions" yaml:"positions"`
	Equity     decimal.Decimal            `json:"equity" yaml:"equity"`
	PeakEquity decimal.Decimal            `json:"peak_equity" yaml:"peak_equity"`
	Drawdown   decimal.Decimal            `json:"drawdown" yaml:"drawdown"`
}

// MarkToMarket recomputes Equity from Cash and the supplied last-trade
// prices, then advances PeakEquity/Drawdown. Symbols absent from prices
// keep their position's AvgPrice as the mark.
func (s PortfolioState) MarkToMarket(prices map[string]decimal.Decimal) PortfolioState {
	next := s
	equity := s.Cash
	positions := make(map[string]Position, len(s.Positions))

	for symbol, pos := range s.Positions {
		mark, ok := prices[symbol]
		if !ok {
			mark = pos.AvgPrice
		}

		pos.MarkPrice = mark
		pos.UnrealizedPnL = pos.Qty.Mul(mark.Sub(pos.AvgPrice))
		positions[symbol] = pos

		equity = equity.Add(pos.Qty.Mul(mark))
	}

	next.Positions = positions
	next.Equity = equity
	if equity.GreaterThan(s.PeakEquity) {
		next.PeakEquity = equity
	} else {
		next.PeakEquity = s.PeakEquity
	}

	if next.PeakEquity.IsPositive() {
		next.Drawdown = next.PeakEquity.Sub(equity).Div(next.PeakEquity)
	} else {
		next.Drawdown = decimal.Zero
	}

	return next
}
