package main

import (
	"context"
	"iter"
	"time"

	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// clockFeedSource advances a barClock to each closed bar's timestamp as
// it flows through, giving a backtest engine's risk monitor and state
// machine a "now" that tracks simulated time instead of wall-clock time.
type clockFeedSource struct {
	inner ports.BarDataSource
	clock *barClock
}

func newClockFeedSource(inner ports.BarDataSource, clock *barClock) *clockFeedSource {
	return &clockFeedSource{inner: inner, clock: clock}
}

func (s *clockFeedSource) GetHistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.tee(s.inner.GetHistoricalBars(ctx, symbol, start, end, timeframe))
}

func (s *clockFeedSource) StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.tee(s.inner.StreamLiveBars(ctx, symbols, timeframe))
}

func (s *clockFeedSource) tee(bars iter.Seq2[types.Bar, error]) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		for bar, err := range bars {
			if err == nil && bar.IsClosed {
				s.clock.Advance(bar.Ts)
			}

			if !yield(bar, err) {
				return
			}
		}
	}
}

var _ ports.BarDataSource = (*clockFeedSource)(nil)
