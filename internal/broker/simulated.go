// Package broker implements the in-process simulated broker adapter
// used by backtest and paper runs: orders fill synchronously against
// the last bar price the composition root has fed it, with commission
// and slippage applied per the resolved cost policy. Package broker
// intentionally does not implement a real venue: broker-specific
// network SDKs are wired in by an external adapter that satisfies
// ports.Broker, never by the core.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// Simulated fills market orders immediately at the last observed price
// for the order's symbol, and fills a limit order immediately only if
// that price already satisfies the limit ("marketable limit"); a
// resting limit book is out of scope, so a non-marketable limit is
// rejected rather than held open. This matches the synchronous-fill
// contract SingleStrategyEngine.applyFillsFor documents: GetFills is
// only polled once, immediately after Submit.
type Simulated struct {
	mu     sync.Mutex
	cost   policy.CostPolicy
	clock  ports.Clock
	prices map[string]decimal.Decimal
	orders map[string]types.OrderRecord
	fills  map[string][]types.Fill
}

// NewSimulated constructs a simulated broker priced by cost.
func NewSimulated(cost policy.CostPolicy, clock ports.Clock) *Simulated {
	return &Simulated{
		cost:   cost,
		clock:  clock,
		prices: make(map[string]decimal.Decimal),
		orders: make(map[string]types.OrderRecord),
		fills:  make(map[string][]types.Fill),
	}
}

// UpdatePrice records the latest trade price for symbol. The
// composition root calls this once per bar, before the bar reaches the
// engine, so a market order submitted in response to that bar fills at
// the bar's own close.
func (b *Simulated) UpdatePrice(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prices[symbol] = price
}

// SubmitOrder resolves the order against the last known price for its
// symbol and returns a terminal (Filled or Rejected) record; there is
// no resting-order state to report back to the state machine later.
func (b *Simulated) SubmitOrder(_ context.Context, req types.OrderRequest) (types.OrderRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	last, known := b.prices[req.Symbol]
	if !known {
		return types.OrderRecord{Status: types.OrderStatusRejected}, coreerrors.Newf(coreerrors.ErrCodeExternalTransient,
			"no price known yet for %s", req.Symbol)
	}

	buy := req.Side == types.SideBuy

	execPrice, ok := b.resolvePrice(req, last, buy)
	if !ok {
		record := types.OrderRecord{OrderID: req.IdempotencyKey, Status: types.OrderStatusRejected}
		b.orders[req.IdempotencyKey] = record

		return record, nil
	}

	execPrice = b.cost.Slippage(execPrice, buy)
	notional := req.Qty.Mul(execPrice)
	fee := b.cost.Commission(notional)

	// FillID derives from the order id and this order's fill count rather
	// than a random source, so two runs over identical inputs emit
	// identical fill records into the artifact stream.
	fillSeq := len(b.fills[req.IdempotencyKey])

	fill := types.Fill{
		FillID:  fmt.Sprintf("%s:%d", req.IdempotencyKey, fillSeq),
		OrderID: req.IdempotencyKey,
		Ts:      b.now(),
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     req.Qty,
		Price:   execPrice,
		Fee:     fee,
	}

	b.fills[req.IdempotencyKey] = append(b.fills[req.IdempotencyKey], fill)

	record := types.OrderRecord{
		OrderID:   req.IdempotencyKey,
		Status:    types.OrderStatusFilled,
		FilledQty: req.Qty,
	}
	b.orders[req.IdempotencyKey] = record

	return record, nil
}

// resolvePrice applies the order type's fill rule against last, the
// most recent observed trade price. Market orders always fill at last;
// a limit order fills at its own limit price when marketable, and is
// otherwise unfillable (ok=false). Stop and stop-limit orders trigger
// once last has crossed the stop, then behave as market or limit
// respectively.
func (b *Simulated) resolvePrice(req types.OrderRequest, last decimal.Decimal, buy bool) (decimal.Decimal, bool) {
	switch req.OrderType {
	case types.OrderTypeMarket:
		return last, true
	case types.OrderTypeLimit:
		return marketableLimit(req.LimitPrice, last, buy)
	case types.OrderTypeStop:
		if !stopTriggered(req.StopPrice, last, buy) {
			return decimal.Zero, false
		}

		return last, true
	case types.OrderTypeStopLimit:
		if !stopTriggered(req.StopPrice, last, buy) {
			return decimal.Zero, false
		}

		return marketableLimit(req.LimitPrice, last, buy)
	default:
		return decimal.Zero, false
	}
}

func marketableLimit(limit optional.Option[decimal.Decimal], last decimal.Decimal, buy bool) (decimal.Decimal, bool) {
	if limit.IsNone() {
		return decimal.Zero, false
	}

	price := limit.Unwrap()

	if buy && last.GreaterThan(price) {
		return decimal.Zero, false
	}

	if !buy && last.LessThan(price) {
		return decimal.Zero, false
	}

	return price, true
}

func stopTriggered(stop optional.Option[decimal.Decimal], last decimal.Decimal, buy bool) bool {
	if stop.IsNone() {
		return false
	}

	price := stop.Unwrap()

	if buy {
		return last.GreaterThanOrEqual(price)
	}

	return last.LessThanOrEqual(price)
}

// CancelOrder is a no-op that reports the order's already-terminal
// status: Simulated never leaves an order open past SubmitOrder.
func (b *Simulated) CancelOrder(_ context.Context, orderID string) (types.OrderRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.orders[orderID]
	if !ok {
		return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeExternalTransient, "unknown order %s", orderID)
	}

	return record, nil
}

// GetOrder returns the last known terminal record for orderID.
func (b *Simulated) GetOrder(_ context.Context, orderID string) (types.OrderRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.orders[orderID]
	if !ok {
		return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeExternalTransient, "unknown order %s", orderID)
	}

	return record, nil
}

// ListOpenOrders always returns empty: Simulated resolves every order
// to a terminal state within SubmitOrder.
func (b *Simulated) ListOpenOrders(_ context.Context, _ string) ([]types.OrderRecord, error) {
	return nil, nil
}

// GetFills returns every fill recorded against orderID.
func (b *Simulated) GetFills(_ context.Context, orderID string) ([]types.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.fills[orderID], nil
}

func (b *Simulated) now() time.Time {
	if b.clock == nil {
		return time.Now().UTC()
	}

	return b.clock.Now()
}

var _ ports.Broker = (*Simulated)(nil)
