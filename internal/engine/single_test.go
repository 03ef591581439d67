package engine

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type fakeSource struct {
	bars []types.Bar
}

func (s fakeSource) GetHistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range s.bars {
			if !yield(bar, nil) {
				return
			}
		}
	}
}

func (s fakeSource) StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return func(func(types.Bar, error) bool) {}
}

// fakeBroker acknowledges every order as Accepted and returns whatever
// fills were stored for it in fills through GetFills; it records none
// itself.
type fakeBroker struct {
	fills map[string][]types.Fill
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{fills: map[string][]types.Fill{}}
}

func (b *fakeBroker) SubmitOrder(ctx context.Context, request types.OrderRequest) (types.OrderRecord, error) {
	// Reports Accepted, not Filled: fills are reconciled separately
	// through GetFills/ApplyFill, matching how a real venue acks a
	// submission before reporting executions.
	return types.OrderRecord{OrderID: request.IdempotencyKey, Request: request, Status: types.OrderStatusAccepted}, nil
}

func (b *fakeBroker) CancelOrder(ctx context.Context, orderID string) (types.OrderRecord, error) {
	return types.OrderRecord{OrderID: orderID, Status: types.OrderStatusCancelled}, nil
}

func (b *fakeBroker) GetOrder(ctx context.Context, orderID string) (types.OrderRecord, error) {
	return types.OrderRecord{OrderID: orderID}, nil
}

func (b *fakeBroker) ListOpenOrders(ctx context.Context, symbol string) ([]types.OrderRecord, error) {
	return nil, nil
}

func (b *fakeBroker) GetFills(ctx context.Context, orderID string) ([]types.Fill, error) {
	return b.fills[orderID], nil
}

type fakeClock struct{ ts time.Time }

func (c fakeClock) Now() time.Time { return c.ts }

// scriptedStrategy returns the signals scheduled for the n-th OnBar
// call (counting from 0), whatever the bar's symbol.
type scriptedStrategy struct {
	signals map[int][]types.Signal
	bars    []types.Bar
	index   int
}

func (s *scriptedStrategy) Load(strategy.Bundle, strategy.Env) error { return nil }

func (s *scriptedStrategy) OnBar(bar types.Bar) ([]types.Signal, error) {
	out := s.signals[s.index]
	s.index++

	return out, nil
}

func (s *scriptedStrategy) OnFill(types.Fill) error { return nil }
func (s *scriptedStrategy) Finalize() error         { return nil }

type SingleStrategyEngineTestSuite struct {
	suite.Suite
}

func TestSingleStrategyEngineSuite(t *testing.T) {
	suite.Run(t, new(SingleStrategyEngineTestSuite))
}

func bar(ts time.Time, close string, closed bool) types.Bar {
	price := decimal.RequireFromString(close)

	return types.Bar{
		Ts: ts, Symbol: "AAPL", Open: price, High: price, Low: price, Close: price,
		Volume: decimal.NewFromInt(1000), IsClosed: closed,
	}
}

func (suite *SingleStrategyEngineTestSuite) TestSkipsUnclosedBars() {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.Bar{
		bar(ts, "100", false),
		bar(ts.Add(time.Minute), "101", true),
	}

	rt := &scriptedStrategy{signals: map[int][]types.Signal{}}
	broker := newFakeBroker()
	source := fakeSource{bars: bars}

	e := NewSingleStrategy(rt, source, broker, fakeClock{ts: ts}, policy.Default(), decimal.NewFromInt(10000), nil)

	_, err := e.Run(context.Background(), "AAPL", ts, ts.Add(time.Hour), types.Timeframe1m)
	require.NoError(suite.T(), err)
	suite.Equal(1, rt.index, "on_bar should only be called for the closed bar")
}

func (suite *SingleStrategyEngineTestSuite) TestEnterThenExitLongUpdatesCash() {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.Bar{
		bar(ts, "100", true),
		bar(ts.Add(time.Minute), "110", true),
	}

	rt := &scriptedStrategy{
		bars: bars,
		signals: map[int][]types.Signal{
			0: {{Symbol: "AAPL", Action: types.ActionEnterLong, Strength: 1, StrategyName: "test"}},
			1: {{Symbol: "AAPL", Action: types.ActionExitLong, Strength: 1, StrategyName: "test"}},
		},
	}

	broker := &recordingBroker{fakeBroker: newFakeBroker()}
	source := fakeSource{bars: bars}

	e := NewSingleStrategy(rt, source, broker, fakeClock{ts: ts}, policy.Default(), decimal.NewFromInt(10000), nil)

	portfolio, err := e.Run(context.Background(), "AAPL", ts, ts.Add(time.Hour), types.Timeframe1m)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), broker.submitted, 2, "expected one order per bar")
	suite.Equal(types.SideBuy, broker.submitted[0].Side)
	suite.Equal(types.SideSell, broker.submitted[1].Side)
	suite.True(portfolio.Cash.LessThan(decimal.NewFromInt(10000)), "commissions and the buy leg should reduce cash below starting equity")
}

// recordingBroker records every submitted request and stores one fill
// for its full qty at a fixed price of 100, reporting the order
// Accepted.
type recordingBroker struct {
	*fakeBroker
	submitted []types.OrderRequest
}

func (b *recordingBroker) SubmitOrder(ctx context.Context, request types.OrderRequest) (types.OrderRecord, error) {
	b.submitted = append(b.submitted, request)

	record := types.OrderRecord{OrderID: request.IdempotencyKey, Request: request, Status: types.OrderStatusAccepted}
	b.fills[record.OrderID] = []types.Fill{{
		FillID: request.IdempotencyKey, OrderID: record.OrderID, Ts: request.CreatedAt,
		Symbol: request.Symbol, Side: request.Side, Qty: request.Qty, Price: decimal.NewFromInt(100),
	}}

	return record, nil
}
