package broker

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type SimulatedTestSuite struct {
	suite.Suite
}

func TestSimulatedSuite(t *testing.T) {
	suite.Run(t, new(SimulatedTestSuite))
}

func (suite *SimulatedTestSuite) zeroCost() policy.CostPolicy {
	return policy.CostPolicy{CommissionBps: decimal.Zero, SlippageBps: decimal.Zero, MinFee: decimal.Zero}
}

func (suite *SimulatedTestSuite) request(orderType types.OrderType, side types.Side) types.OrderRequest {
	return types.OrderRequest{
		IdempotencyKey: "key-1",
		CreatedAt:      time.Now().UTC(),
		Symbol:         "AAPL",
		Side:           side,
		OrderType:      orderType,
		Qty:            decimal.NewFromInt(10),
		StrategyName:   "test",
	}
}

func (suite *SimulatedTestSuite) TestSubmitMarketOrderWithoutPriceIsTransient() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})

	_, err := b.SubmitOrder(context.Background(), suite.request(types.OrderTypeMarket, types.SideBuy))
	suite.Error(err)
	suite.True(coreerrors.HasCode(err, coreerrors.ErrCodeExternalTransient))
}

func (suite *SimulatedTestSuite) TestSubmitMarketOrderFillsAtLastPrice() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(150))

	record, err := b.SubmitOrder(context.Background(), suite.request(types.OrderTypeMarket, types.SideBuy))
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, record.Status)
	suite.True(record.FilledQty.Equal(decimal.NewFromInt(10)))

	fills, err := b.GetFills(context.Background(), record.OrderID)
	suite.NoError(err)
	suite.Require().Len(fills, 1)
	suite.True(fills[0].Price.Equal(decimal.NewFromInt(150)))
}

func (suite *SimulatedTestSuite) TestSubmitMarketOrderAppliesSlippageAndCommission() {
	cost := policy.CostPolicy{CommissionBps: decimal.NewFromInt(10), SlippageBps: decimal.NewFromInt(100), MinFee: decimal.Zero}
	b := NewSimulated(cost, fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(100))

	record, err := b.SubmitOrder(context.Background(), suite.request(types.OrderTypeMarket, types.SideBuy))
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, record.Status)

	fills, err := b.GetFills(context.Background(), record.OrderID)
	suite.NoError(err)
	suite.Require().Len(fills, 1)

	// 100bps slippage on a buy pushes price up from 100 to 101.
	suite.True(fills[0].Price.Equal(decimal.NewFromInt(101)), "got %s", fills[0].Price)
	suite.True(fills[0].Fee.IsPositive())
}

func (suite *SimulatedTestSuite) TestSubmitNonMarketableLimitRejected() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(150))

	req := suite.request(types.OrderTypeLimit, types.SideBuy)
	req.LimitPrice = optional.Some(decimal.NewFromInt(100))

	record, err := b.SubmitOrder(context.Background(), req)
	suite.NoError(err)
	suite.Equal(types.OrderStatusRejected, record.Status)
}

func (suite *SimulatedTestSuite) TestSubmitMarketableLimitFillsAtLimitPrice() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(90))

	req := suite.request(types.OrderTypeLimit, types.SideBuy)
	req.LimitPrice = optional.Some(decimal.NewFromInt(100))

	record, err := b.SubmitOrder(context.Background(), req)
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, record.Status)

	fills, err := b.GetFills(context.Background(), record.OrderID)
	suite.NoError(err)
	suite.Require().Len(fills, 1)
	suite.True(fills[0].Price.Equal(decimal.NewFromInt(100)))
}

func (suite *SimulatedTestSuite) TestSubmitStopOrderNotTriggered() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(90))

	req := suite.request(types.OrderTypeStop, types.SideBuy)
	req.StopPrice = optional.Some(decimal.NewFromInt(100))

	record, err := b.SubmitOrder(context.Background(), req)
	suite.NoError(err)
	suite.Equal(types.OrderStatusRejected, record.Status)
}

func (suite *SimulatedTestSuite) TestSubmitStopOrderTriggered() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(105))

	req := suite.request(types.OrderTypeStop, types.SideBuy)
	req.StopPrice = optional.Some(decimal.NewFromInt(100))

	record, err := b.SubmitOrder(context.Background(), req)
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, record.Status)
}

func (suite *SimulatedTestSuite) TestListOpenOrdersAlwaysEmpty() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(150))

	_, err := b.SubmitOrder(context.Background(), suite.request(types.OrderTypeMarket, types.SideBuy))
	suite.Require().NoError(err)

	open, err := b.ListOpenOrders(context.Background(), "AAPL")
	suite.NoError(err)
	suite.Empty(open)
}

func (suite *SimulatedTestSuite) TestGetOrderUnknown() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})

	_, err := b.GetOrder(context.Background(), "does-not-exist")
	suite.Error(err)
}

func (suite *SimulatedTestSuite) TestCancelOrderReturnsTerminalRecord() {
	b := NewSimulated(suite.zeroCost(), fakeClock{time.Now().UTC()})
	b.UpdatePrice("AAPL", decimal.NewFromInt(150))

	record, err := b.SubmitOrder(context.Background(), suite.request(types.OrderTypeMarket, types.SideBuy))
	suite.Require().NoError(err)

	cancelled, err := b.CancelOrder(context.Background(), record.OrderID)
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, cancelled.Status)
}
