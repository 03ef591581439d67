package marketdata

import (
	"context"
	"iter"
	"time"

	"github.com/rxtech-lab/argo-trading/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// BarSource adapts a Provider to ports.BarDataSource so the engine can
// pull historical bars and live streams through the same interface it
// uses for backtest fixtures and paper/live feeds.
type BarSource struct {
	provider provider.Provider
}

// NewBarSource wraps a configured provider for engine consumption.
func NewBarSource(p provider.Provider) *BarSource {
	return &BarSource{provider: p}
}

// GetHistoricalBars replays 1-minute bars for symbol between start and
// end. timeframe is accepted for port-interface compatibility only:
// providers only ever serve Timeframe1m to the core, matching Bar's
// wire-format invariant.
func (s *BarSource) GetHistoricalBars(ctx context.Context, symbol string, start time.Time, end time.Time, _ types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.provider.Bars(ctx, symbol, start, end)
}

// StreamLiveBars subscribes to the given symbols and yields a bar each
// time the provider's feed finalizes a candle.
func (s *BarSource) StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.provider.Stream(ctx, symbols, string(timeframe))
}
