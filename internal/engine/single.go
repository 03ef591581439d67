// Package engine drives a loaded strategy runtime against a bar stream,
// coordinating the sizing policy, risk monitor, order state machine,
// and artifact writer for one run.
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"

	"github.com/rxtech-lab/argo-trading/internal/artifact"
	"github.com/rxtech-lab/argo-trading/internal/lifecycle"
	"github.com/rxtech-lab/argo-trading/internal/risk"
	"github.com/rxtech-lab/argo-trading/internal/runtime"
)

// StrategyRuntime is the subset of runtime.StrategyRuntime the engine
// drives; declared locally so this package does not import the
// concrete goruntime/wasm packages.
type StrategyRuntime = runtime.StrategyRuntime

// SingleStrategyEngine runs one strategy bundle across its declared
// universe, processing bars in strictly increasing (ts, symbol) order.
type SingleStrategyEngine struct {
	runtime  StrategyRuntime
	source   ports.BarDataSource
	broker   ports.Broker
	clock    ports.Clock
	sm       *lifecycle.StateMachine
	monitor  *risk.Monitor
	writer   *artifact.Writer
	sizing      policy.SizingPolicy
	cost        policy.CostPolicy
	startEquity decimal.Decimal
	seq         int
	stopped     bool
}

// NewSingleStrategy wires a SingleStrategyEngine from its ports and
// resolved policy set. writer may be nil, in which case events are
// dropped rather than persisted.
func NewSingleStrategy(rt StrategyRuntime, source ports.BarDataSource, broker ports.Broker, clock ports.Clock, policies policy.Set, startEquity decimal.Decimal, writer *artifact.Writer) *SingleStrategyEngine {
	emit := func(types.ArtifactEvent) {}
	if writer != nil {
		emit = func(event types.ArtifactEvent) { _ = writer.Write(event) }
	}

	return &SingleStrategyEngine{
		runtime:     rt,
		source:      source,
		broker:      broker,
		clock:       clock,
		sm:          lifecycle.New(broker, clock, emit),
		monitor:     risk.New(policies.Risk, startEquity, emit),
		writer:      writer,
		sizing:      policies.Sizing,
		cost:        policies.Cost,
		startEquity: startEquity,
	}
}

// Stop requests cooperative shutdown; it takes effect between bars.
func (e *SingleStrategyEngine) Stop() {
	e.stopped = true
}

// Run drives the strategy across one symbol's historical bar sequence.
// A caller wanting multiple symbols merges their bar streams into
// (ts, symbol) order before calling Run, per the core's single-threaded
// scheduling model.
func (e *SingleStrategyEngine) Run(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) (types.PortfolioState, error) {
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

	return portfolio, e.runtime.Finalize()
}

// RunLive drives the strategy against a live, possibly multi-symbol bar
// stream until the source closes, the context is cancelled, or Stop is
// called between bars. Symbol interleaving is the source's
// responsibility, matching StreamLiveBars' contract.
func (e *SingleStrategyEngine) RunLive(ctx context.Context, symbols []string, timeframe types.Timeframe) (types.PortfolioState, error) {
	portfolio := types.PortfolioState{Cash: e.startEquity, Positions: map[string]types.Position{}}

	for bar, err := range e.source.StreamLiveBars(ctx, symbols, timeframe) {
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

	return portfolio, e.runtime.Finalize()
}

func (e *SingleStrategyEngine) processBar(ctx context.Context, bar types.Bar, portfolio types.PortfolioState) (types.PortfolioState, error) {
	marked := portfolio.MarkToMarket(map[string]decimal.Decimal{bar.Symbol: bar.Close})

	signals, err := e.runtime.OnBar(bar)
	if err != nil {
		return marked, coreerrors.Wrap(coreerrors.ErrCodeStrategyLoad, "strategy on_bar failed", err)
	}

	for _, signal := range signals {
		e.seq++

		_, hasPosition := marked.Positions[signal.Symbol]

		request, ok := sizeSignal(signal, bar, marked.Equity, e.sizing, hasPosition, e.seq)
		if !ok {
			continue
		}

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

		marked = e.applyFillsFor(ctx, record, marked)
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

// applyFillsFor pulls any fills the broker recorded synchronously for
// record and folds them into the portfolio. Backtest and paper adapters
// resolve fills within SubmitOrder's call; live adapters are expected
// to report fills through the same GetFills port before Run's next bar.
func (e *SingleStrategyEngine) applyFillsFor(ctx context.Context, record types.OrderRecord, portfolio types.PortfolioState) types.PortfolioState {
	fills, err := e.broker.GetFills(ctx, record.OrderID)
	if err != nil {
		return portfolio
	}

	next := portfolio

	for _, fill := range fills {
		if _, err := e.sm.ApplyFill(fill); err != nil {
			continue
		}

		fee := e.cost.Commission(fill.Qty.Mul(fill.Price))
		position := next.Positions[fill.Symbol].ApplyFill(fill)
		next.Positions[fill.Symbol] = position

		if fill.Side == types.SideBuy {
			next.Cash = next.Cash.Sub(fill.Qty.Mul(fill.Price)).Sub(fee)
		} else {
			next.Cash = next.Cash.Add(fill.Qty.Mul(fill.Price)).Sub(fee)
		}
	}

	return next
}
