package engine

import (
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// sizeSignal converts a strategy Signal into an OrderRequest using the
// merged SizingPolicy: notional risked is per_trade_risk * equity *
// strength, converted to a share quantity at the bar's close price.
// hold and exit signals against a symbol with no open position produce
// no order.
func sizeSignal(signal types.Signal, bar types.Bar, equity decimal.Decimal, sizing policy.SizingPolicy, hasPosition bool, seq int) (types.OrderRequest, bool) {
	side, ok := signalSide(signal.Action, hasPosition)
	if !ok {
		return types.OrderRequest{}, false
	}

	strength := decimal.NewFromFloat(clampStrength(signal.Strength))
	riskNotional := equity.Mul(sizing.PerTradeRisk).Mul(strength)

	if riskNotional.IsZero() || bar.Close.IsZero() {
		return types.OrderRequest{}, false
	}

	qty := riskNotional.Div(bar.Close).Abs()
	if !qty.IsPositive() {
		return types.OrderRequest{}, false
	}

	return types.OrderRequest{
		IdempotencyKey: types.CanonicalIdempotencyKey(signal.StrategyName, signal.Symbol, side, bar.Ts, seq),
		CreatedAt:      bar.Ts,
		Symbol:         signal.Symbol,
		Side:           side,
		OrderType:      types.OrderTypeMarket,
		Qty:            qty,
		StrategyName:   signal.StrategyName,
	}, true
}

func signalSide(action types.SignalAction, hasPosition bool) (types.Side, bool) {
	switch action {
	case types.ActionEnterLong:
		return types.SideBuy, true
	case types.ActionExitLong:
		if !hasPosition {
			return "", false
		}

		return types.SideSell, true
	case types.ActionEnterShort:
		return types.SideSell, true
	case types.ActionExitShort:
		if !hasPosition {
			return "", false
		}

		return types.SideBuy, true
	default:
		return "", false
	}
}

func clampStrength(strength float64) float64 {
	switch {
	case strength < 0:
		return 0
	case strength > 1:
		return 1
	default:
		return strength
	}
}
