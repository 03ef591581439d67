package engine

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"

	"github.com/rxtech-lab/argo-trading/internal/artifact"
	"github.com/rxtech-lab/argo-trading/internal/lifecycle"
	"github.com/rxtech-lab/argo-trading/internal/risk"
)

// RebalancingEngine drives a strategy.RebalancingStrategy: on each
// rebalance trigger it asks the strategy for TargetWeights, converts
// the delta against current weights into orders, and submits them
// through the same risk and lifecycle machinery SingleStrategyEngine
// uses.
type RebalancingEngine struct {
	strategy strategy.RebalancingStrategy
	source   ports.BarDataSource
	broker   ports.Broker
	sm       *lifecycle.StateMachine
	monitor  *risk.Monitor
	writer      *artifact.Writer
	sizing      policy.SizingPolicy
	startEquity decimal.Decimal
	seq         int
	stopped     bool
}

// NewRebalancing wires a RebalancingEngine.
func NewRebalancing(s strategy.RebalancingStrategy, source ports.BarDataSource, broker ports.Broker, clock ports.Clock, policies policy.Set, startEquity decimal.Decimal, writer *artifact.Writer) *RebalancingEngine {
	emit := func(types.ArtifactEvent) {}
	if writer != nil {
		emit = func(event types.ArtifactEvent) { _ = writer.Write(event) }
	}

	return &RebalancingEngine{
		strategy:    s,
		source:      source,
		broker:      broker,
		sm:          lifecycle.New(broker, clock, emit),
		monitor:     risk.New(policies.Risk, startEquity, emit),
		writer:      writer,
		sizing:      policies.Sizing,
		startEquity: startEquity,
	}
}

// Stop requests cooperative shutdown, effective between bars.
func (e *RebalancingEngine) Stop() {
	e.stopped = true
}

// Run drives the strategy across symbol's bar sequence. Every closed
// bar is a rebalance trigger; a strategy that wants a coarser schedule
// returns Rebalance=false on the bars it wants skipped.
func (e *RebalancingEngine) Run(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) (types.PortfolioState, error) {
	portfolio := types.PortfolioState{Cash: e.startEquity, Positions: map[string]types.Position{}}

	for bar, err := range e.source.GetHistoricalBars(ctx, symbol, start, end, timeframe) {
		if e.stopped {
			break
		}

		if err != nil {
			return portfolio, coreerrors.Wrap(coreerrors.ErrCodePortUnavailable, "bar data source failed", err)
		}

		if !bar.IsClosed {
			continue
		}

		next, err := e.processBar(ctx, bar, portfolio)
		if err != nil {
			return portfolio, err
		}

		portfolio = next
	}

	return portfolio, e.strategy.Finalize()
}

func (e *RebalancingEngine) processBar(ctx context.Context, bar types.Bar, portfolio types.PortfolioState) (types.PortfolioState, error) {
	marked := portfolio.MarkToMarket(map[string]decimal.Decimal{bar.Symbol: bar.Close})

	target, err := e.strategy.TargetWeights(bar.Ts, marked)
	if err != nil {
		return marked, coreerrors.Wrap(coreerrors.ErrCodeStrategyLoad, "strategy target_weights failed", err)
	}

	if !target.Rebalance {
		if _, err := e.monitor.AfterFill(ctx, bar.Ts, marked, e.sm); err != nil {
			return marked, err
		}

		return marked, nil
	}

	requests := deltaOrders(target, marked, bar, e.sizing, &e.seq)

	for _, request := range requests {
		notional := request.Qty.Mul(bar.Close)
		leverage := decimal.Zero

		if marked.Equity.IsPositive() {
			leverage = notional.Div(marked.Equity)
		}

		if err := e.monitor.PreTradeCheck(bar.Ts, leverage, notional); err != nil {
			if coreerrors.HasCode(err, coreerrors.ErrCodeRiskPreTradeReject) || coreerrors.HasCode(err, coreerrors.ErrCodeKillSwitchBlocked) {
				continue
			}

			return marked, err
		}

		record, err := e.sm.Submit(ctx, request)
		if err != nil && !coreerrors.HasCode(err, coreerrors.ErrCodeExternalTransient) {
			return marked, err
		}

		fills, ferr := e.broker.GetFills(ctx, record.OrderID)
		if ferr == nil {
			for _, fill := range fills {
				_, _ = e.sm.ApplyFill(fill)
				pos := marked.Positions[fill.Symbol].ApplyFill(fill)
				marked.Positions[fill.Symbol] = pos

				if fill.Side == types.SideBuy {
					marked.Cash = marked.Cash.Sub(fill.Qty.Mul(fill.Price))
				} else {
					marked.Cash = marked.Cash.Add(fill.Qty.Mul(fill.Price))
				}
			}
		}
	}

	if _, err := e.monitor.AfterFill(ctx, bar.Ts, marked, e.sm); err != nil {
		return marked, err
	}

	if e.writer != nil {
		e.writer.Write(types.ArtifactEvent{Type: types.ArtifactEventPositionsSnapshot, Ts: bar.Ts, Portfolio: &marked})
		e.writer.Write(types.ArtifactEvent{Type: types.ArtifactEventPnLSnapshot, Ts: bar.Ts, Portfolio: &marked})
	}

	return marked, nil
}

// deltaOrders computes per-symbol delta notionals between current and
// target weights, applies the turnover cap from max_gross_exposure by
// scaling proportionally when the gross traded notional would exceed
// it, and returns orders in deterministic order: ascending symbol, with
// sells preceding buys so closing trades free buying power first.
func deltaOrders(target types.TargetWeights, portfolio types.PortfolioState, bar types.Bar, sizing policy.SizingPolicy, seq *int) []types.OrderRequest {
	if portfolio.Equity.IsZero() {
		return nil
	}

	type delta struct {
		symbol string
		amount decimal.Decimal // signed notional delta
	}

	symbols := make(map[string]bool)
	for s := range target.Weights {
		symbols[s] = true
	}

	for s := range portfolio.Positions {
		symbols[s] = true
	}

	var deltas []delta

	for symbol := range symbols {
		currentWeight := decimal.Zero
		if pos, ok := portfolio.Positions[symbol]; ok && portfolio.Equity.IsPositive() {
			currentWeight = pos.Qty.Mul(pos.AvgPrice).Div(portfolio.Equity)
		}

		targetWeight := target.Weights[symbol]
		amount := targetWeight.Sub(currentWeight).Mul(portfolio.Equity)

		if !amount.IsZero() {
			deltas = append(deltas, delta{symbol: symbol, amount: amount})
		}
	}

	grossNotional := decimal.Zero
	for _, d := range deltas {
		grossNotional = grossNotional.Add(d.amount.Abs())
	}

	cap := portfolio.Equity.Mul(sizing.MaxGrossExposure)
	if grossNotional.GreaterThan(cap) && grossNotional.IsPositive() {
		scale := cap.Div(grossNotional)
		for i := range deltas {
			deltas[i].amount = deltas[i].amount.Mul(scale)
		}
	}

	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].symbol != deltas[j].symbol {
			return deltas[i].symbol < deltas[j].symbol
		}

		return deltas[i].amount.IsNegative() && !deltas[j].amount.IsNegative()
	})

	var orders []types.OrderRequest

	for _, d := range deltas {
		if d.amount.IsZero() || bar.Close.IsZero() {
			continue
		}

		side := types.SideBuy
		if d.amount.IsNegative() {
			side = types.SideSell
		}

		*seq++

		orders = append(orders, types.OrderRequest{
			IdempotencyKey: types.CanonicalIdempotencyKey("rebalance", d.symbol, side, bar.Ts, *seq),
			CreatedAt:      bar.Ts,
			Symbol:         d.symbol,
			Side:           side,
			OrderType:      types.OrderTypeMarket,
			Qty:            d.amount.Abs().Div(bar.Close),
			StrategyName:   "rebalance",
		})
	}

	return orders
}
