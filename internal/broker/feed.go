package broker

import (
	"context"
	"iter"
	"time"

	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// PriceFeedSource wraps a ports.BarDataSource and updates a Simulated
// broker's price table as bars flow through, so a market order the
// engine submits in response to a bar fills at that same bar's close.
type PriceFeedSource struct {
	inner  ports.BarDataSource
	broker *Simulated
}

// NewPriceFeedSource ties broker's price table to inner's bar stream.
func NewPriceFeedSource(inner ports.BarDataSource, broker *Simulated) *PriceFeedSource {
	return &PriceFeedSource{inner: inner, broker: broker}
}

// GetHistoricalBars delegates to inner, updating the broker's price
// table for every closed bar before it reaches the caller.
func (s *PriceFeedSource) GetHistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.tee(s.inner.GetHistoricalBars(ctx, symbol, start, end, timeframe))
}

// StreamLiveBars delegates to inner, updating the broker's price table
// for every closed bar before it reaches the caller.
func (s *PriceFeedSource) StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.tee(s.inner.StreamLiveBars(ctx, symbols, timeframe))
}

func (s *PriceFeedSource) tee(bars iter.Seq2[types.Bar, error]) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		for bar, err := range bars {
			if err == nil && bar.IsClosed {
				s.broker.UpdatePrice(bar.Symbol, bar.Close)
			}

			if !yield(bar, err) {
				return
			}
		}
	}
}

var _ ports.BarDataSource = (*PriceFeedSource)(nil)
