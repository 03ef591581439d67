// Package risk maintains RiskState incrementally and enforces the
// pre-trade checks and kill-switch trip logic described by the merged
// RiskPolicy.
package risk

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// Canceller cancels every open order; the engine's Order State Machine
// satisfies this narrow interface so the monitor does not need to
// depend on the full lifecycle package.
type Canceller interface {
	OpenOrders() []types.OrderRecord
	Cancel(ctx context.Context, orderID string) (types.OrderRecord, error)
}

// Monitor is the risk monitor for one run. It is not safe for
// concurrent use; the engine drives it from a single goroutine per bar.
type Monitor struct {
	policy policy.RiskPolicy
	emit   func(types.ArtifactEvent)
	state  types.RiskState
}

// New constructs a monitor seeded with the equity the run starts with.
func New(riskPolicy policy.RiskPolicy, startEquity decimal.Decimal, emit func(types.ArtifactEvent)) *Monitor {
	if emit == nil {
		emit = func(types.ArtifactEvent) {}
	}

	return &Monitor{
		policy: riskPolicy,
		emit:   emit,
		state: types.RiskState{
			DailyStartEquity: startEquity,
		},
	}
}

// State returns the monitor's current view.
func (m *Monitor) State() types.RiskState {
	return m.state
}

// PreTradeCheck evaluates an intended order against the merged
// RiskPolicy before it reaches the Order State Machine. projectedNotional
// is the notional the position would carry if the order fills in full.
func (m *Monitor) PreTradeCheck(ts time.Time, projectedLeverage, projectedNotional decimal.Decimal) error {
	if m.state.Tripped {
		m.emit(riskEvent(ts, "kill_switch_block", "kill switch is active"))
		return coreerrors.New(coreerrors.ErrCodeKillSwitchBlocked, "kill switch is active, all new intents are blocked")
	}

	if projectedLeverage.GreaterThan(m.policy.MaxLeverage) {
		m.emit(riskEvent(ts, "max_leverage_exceeded", projectedLeverage.String()))
		return coreerrors.Newf(coreerrors.ErrCodeRiskPreTradeReject, "projected leverage %s exceeds max_leverage %s", projectedLeverage, m.policy.MaxLeverage)
	}

	if projectedNotional.GreaterThan(m.policy.MaxPositionNotional) {
		m.emit(riskEvent(ts, "max_position_notional_exceeded", projectedNotional.String()))
		return coreerrors.Newf(coreerrors.ErrCodeRiskPreTradeReject, "projected notional %s exceeds max_position_notional %s", projectedNotional, m.policy.MaxPositionNotional)
	}

	return nil
}

// AfterFill recomputes drawdown from the portfolio's post-fill equity
// and trips the kill switch if kill_switch_dd is breached. On a trip
// every open order is cancelled through canceller. With
// FlattenOnKillSwitch set the monitor also records FlattenedOnTrip; it
// closes no positions itself, and the engines do not read that flag.
func (m *Monitor) AfterFill(ctx context.Context, ts time.Time, portfolio types.PortfolioState, canceller Canceller) (bool, error) {
	m.state.Ts = ts

	if portfolio.PeakEquity.IsZero() {
		return false, nil
	}

	drawdown := portfolio.PeakEquity.Sub(portfolio.Equity).Div(portfolio.PeakEquity)

	if m.state.Tripped || drawdown.LessThan(m.policy.KillSwitchDD) {
		return false, nil
	}

	m.state = m.state.Trip(types.KillSwitchMaxDrawdown, ts)
	m.emit(riskEvent(ts, "kill_switch_tripped", drawdown.String()))

	for _, order := range canceller.OpenOrders() {
		if _, err := canceller.Cancel(ctx, order.OrderID); err != nil {
			return true, coreerrors.Wrap(coreerrors.ErrCodeRiskPreTradeReject, "failed to cancel open order after kill switch trip", err)
		}
	}

	if m.policy.FlattenOnKillSwitch {
		m.state.FlattenedOnTrip = true
	}

	return true, nil
}

func riskEvent(ts time.Time, kind, detail string) types.ArtifactEvent {
	return types.ArtifactEvent{
		Type: types.ArtifactEventRisk,
		Ts:   ts,
		LimitHit: &types.LimitHitEvent{
			Kind:    kind,
			Detail:  detail,
			Blocked: true,
		},
	}
}
