// Package ports declares the contracts every engine consumes and never
// implements directly. Backtest, paper, and live adapters each satisfy
// the same interfaces so the engines are oblivious to which mode they
// are running under.
package ports

import (
	"context"
	"iter"
	"time"

	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// BarDataSource supplies bars either as a bounded historical replay or
// as an unbounded live stream. Historical iteration must be restartable
// (a fresh call replays the same sequence); streaming is not.
type BarDataSource interface {
	GetHistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) iter.Seq2[types.Bar, error]
	StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error]
}

// Broker executes orders and reports fills. Every adapter — simulated,
// paper, or live — must honor the idempotency key on SubmitOrder: a
// second submission with a key already accepted returns the existing
// OrderRecord rather than creating a duplicate.
type Broker interface {
	SubmitOrder(ctx context.Context, request types.OrderRequest) (types.OrderRecord, error)
	CancelOrder(ctx context.Context, orderID string) (types.OrderRecord, error)
	GetOrder(ctx context.Context, orderID string) (types.OrderRecord, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]types.OrderRecord, error)
	GetFills(ctx context.Context, orderID string) ([]types.Fill, error)
}

// Clock returns the engine's notion of "now". Backtests drive it from
// the current bar's close time; paper and live use the system clock.
type Clock interface {
	Now() time.Time
}

// StateStore persists portfolio, risk, and idempotency state for
// restart safety. It is optional: engines run without one, they simply
// cannot resume a crashed run mid-stream.
type StateStore interface {
	LoadPortfolioState(ctx context.Context) (types.PortfolioState, bool, error)
	SavePortfolioState(ctx context.Context, state types.PortfolioState) error
	LoadRiskState(ctx context.Context) (types.RiskState, bool, error)
	SaveRiskState(ctx context.Context, state types.RiskState) error
	LoadIdempotencyMap(ctx context.Context) (map[string]string, error)
	SaveIdempotencyMap(ctx context.Context, m map[string]string) error
}

// Notifier broadcasts limit-hit and kill-switch events out of band. It
// is optional; a nil Notifier means the engine only records events in
// the artifact stream.
type Notifier interface {
	Emit(ctx context.Context, event types.ArtifactEvent) error
}
