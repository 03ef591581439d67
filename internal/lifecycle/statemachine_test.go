package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fakeBroker struct {
	submitErr error
	status    types.OrderStatus
}

func (b *fakeBroker) SubmitOrder(_ context.Context, req types.OrderRequest) (types.OrderRecord, error) {
	if b.submitErr != nil {
		return types.OrderRecord{}, b.submitErr
	}

	status := b.status
	if status == "" {
		status = types.OrderStatusAccepted
	}

	return types.OrderRecord{Status: status}, nil
}

func (b *fakeBroker) CancelOrder(context.Context, string) (types.OrderRecord, error) {
	return types.OrderRecord{Status: types.OrderStatusCancelled}, nil
}

func (b *fakeBroker) GetOrder(context.Context, string) (types.OrderRecord, error) {
	return types.OrderRecord{}, nil
}

func (b *fakeBroker) ListOpenOrders(context.Context, string) ([]types.OrderRecord, error) {
	return nil, nil
}

func (b *fakeBroker) GetFills(context.Context, string) ([]types.Fill, error) {
	return nil, nil
}

type StateMachineTestSuite struct {
	suite.Suite
}

func TestStateMachineSuite(t *testing.T) {
	suite.Run(t, new(StateMachineTestSuite))
}

func (suite *StateMachineTestSuite) request(key string) types.OrderRequest {
	return types.OrderRequest{
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
		Symbol:         "AAPL",
		Side:           types.SideBuy,
		OrderType:      types.OrderTypeMarket,
		Qty:            decimal.NewFromInt(10),
		StrategyName:   "test",
	}
}

func (suite *StateMachineTestSuite) TestSubmitNewOrder() {
	sm := New(&fakeBroker{}, fakeClock{time.Now().UTC()}, nil)

	record, err := sm.Submit(context.Background(), suite.request("k1"))
	require.NoError(suite.T(), err)
	suite.Equal(types.OrderStatusAccepted, record.Status)
}

func (suite *StateMachineTestSuite) TestSubmitReplaySameKeySamePayload() {
	sm := New(&fakeBroker{}, fakeClock{time.Now().UTC()}, nil)

	first, err := sm.Submit(context.Background(), suite.request("k2"))
	require.NoError(suite.T(), err)

	second, err := sm.Submit(context.Background(), suite.request("k2"))
	require.NoError(suite.T(), err)
	suite.Equal(first.OrderID, second.OrderID)
}

func (suite *StateMachineTestSuite) TestSubmitConflictingPayloadSameKey() {
	sm := New(&fakeBroker{}, fakeClock{time.Now().UTC()}, nil)

	_, err := sm.Submit(context.Background(), suite.request("k3"))
	require.NoError(suite.T(), err)

	conflicting := suite.request("k3")
	conflicting.Qty = decimal.NewFromInt(999)

	_, err = sm.Submit(context.Background(), conflicting)
	suite.Error(err)
	suite.True(coreerrors.HasCode(err, coreerrors.ErrCodeIdempotencyConflict))
}

func (suite *StateMachineTestSuite) TestApplyFillPartialThenFull() {
	sm := New(&fakeBroker{}, fakeClock{time.Now().UTC()}, nil)

	record, err := sm.Submit(context.Background(), suite.request("k4"))
	require.NoError(suite.T(), err)

	updated, err := sm.ApplyFill(types.Fill{
		OrderID: record.OrderID,
		Ts:      time.Now().UTC(),
		Symbol:  "AAPL",
		Side:    types.SideBuy,
		Qty:     decimal.NewFromInt(4),
		Price:   decimal.NewFromInt(100),
	})
	require.NoError(suite.T(), err)
	suite.Equal(types.OrderStatusPartiallyFilled, updated.Status)

	final, err := sm.ApplyFill(types.Fill{
		OrderID: record.OrderID,
		Ts:      time.Now().UTC(),
		Symbol:  "AAPL",
		Side:    types.SideBuy,
		Qty:     decimal.NewFromInt(6),
		Price:   decimal.NewFromInt(101),
	})
	require.NoError(suite.T(), err)
	suite.Equal(types.OrderStatusFilled, final.Status)
	suite.True(final.FilledQty.Equal(decimal.NewFromInt(10)))
}

func (suite *StateMachineTestSuite) TestTransitionFromTerminalRejected() {
	sm := New(&fakeBroker{status: types.OrderStatusRejected}, fakeClock{time.Now().UTC()}, nil)

	record, err := sm.Submit(context.Background(), suite.request("k5"))
	require.NoError(suite.T(), err)
	suite.Equal(types.OrderStatusRejected, record.Status)

	_, err = sm.ApplyFill(types.Fill{OrderID: record.OrderID, Qty: decimal.NewFromInt(1)})
	suite.Error(err)
}

func (suite *StateMachineTestSuite) TestTransientAdapterErrorPreservesOrder() {
	sm := New(&fakeBroker{submitErr: coreerrors.New(coreerrors.ErrCodeExternalTransient, "network blip")}, fakeClock{time.Now().UTC()}, nil)

	_, err := sm.Submit(context.Background(), suite.request("k6"))
	suite.Error(err)
	suite.True(coreerrors.HasCode(err, coreerrors.ErrCodeExternalTransient))

	record, ok := sm.Get(sm.byKey["k6"])
	suite.True(ok)
	suite.Equal(1, record.RetryCount)
	suite.False(record.Status.IsTerminal())
}

func (suite *StateMachineTestSuite) TestSemanticAdapterErrorRejectsOrder() {
	sm := New(&fakeBroker{submitErr: coreerrors.New(coreerrors.ErrCodeExternalSemantic, "insufficient funds")}, fakeClock{time.Now().UTC()}, nil)

	_, err := sm.Submit(context.Background(), suite.request("k7"))
	suite.Error(err)

	record, ok := sm.Get(sm.byKey["k7"])
	suite.True(ok)
	suite.Equal(types.OrderStatusRejected, record.Status)
}

func (suite *StateMachineTestSuite) TestPayloadHashStableAcrossDecimalScales() {
	a := suite.request("hash-a")
	a.Qty = decimal.RequireFromString("10")

	b := suite.request("hash-a")
	b.Qty = decimal.RequireFromString("10.00")

	suite.Equal(PayloadHash(a), PayloadHash(b), "numerically equal quantities hash identically regardless of decimal scale")
}
