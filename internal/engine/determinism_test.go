package engine

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-trading/internal/artifact"
	"github.com/rxtech-lab/argo-trading/internal/broker"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// advancingClock mirrors cmd/argocore's barClock: it reports the
// timestamp of the most recently seen bar rather than the wall clock,
// so a full run's "now" is reproducible across two invocations over
// the same bar sequence.
type advancingClock struct {
	ts time.Time
}

func (c *advancingClock) Now() time.Time { return c.ts }

func (c *advancingClock) Advance(ts time.Time) { c.ts = ts }

// clockFeedSource advances an advancingClock to each closed bar's
// timestamp as it flows through, the same decorator shape as
// cmd/argocore/clockfeed.go's clockFeedSource and
// internal/broker.PriceFeedSource.
type clockFeedSource struct {
	inner ports.BarDataSource
	clock *advancingClock
}

func (s clockFeedSource) GetHistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.tee(s.inner.GetHistoricalBars(ctx, symbol, start, end, timeframe))
}

func (s clockFeedSource) StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return s.tee(s.inner.StreamLiveBars(ctx, symbols, timeframe))
}

func (s clockFeedSource) tee(bars iter.Seq2[types.Bar, error]) iter.Seq2[types.Bar, error] {
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

type DeterminismTestSuite struct {
	suite.Suite
}

func TestDeterminismSuite(t *testing.T) {
	suite.Run(t, new(DeterminismTestSuite))
}

// runBacktest wires a fresh SingleStrategyEngine from scratch, backed by
// the real Simulated broker and a real artifact.Writer pointed at dir,
// and drives it across the same fixed bar sequence a scriptedStrategy
// reacts to on a schedule. Every port is newly constructed per call so
// two calls share no mutable state.
func (suite *DeterminismTestSuite) runBacktest(dir string, bars []types.Bar) artifact.Manifest {
	rt := &scriptedStrategy{
		bars: bars,
		signals: map[int][]types.Signal{
			0: {{Symbol: "AAPL", Action: types.ActionEnterLong, Strength: 1, StrategyName: "test"}},
			1: {{Symbol: "AAPL", Action: types.ActionExitLong, Strength: 1, StrategyName: "test"}},
			2: {{Symbol: "AAPL", Action: types.ActionEnterLong, Strength: 1, StrategyName: "test"}},
		},
	}

	clock := &advancingClock{ts: bars[0].Ts}
	simBroker := broker.NewSimulated(policy.Default().Cost, clock)
	source := clockFeedSource{inner: fakeSource{bars: bars}, clock: clock}
	pricedSource := broker.NewPriceFeedSource(source, simBroker)

	w, err := artifact.New(dir)
	require.NoError(suite.T(), err)
	defer w.Close()

	e := NewSingleStrategy(rt, pricedSource, simBroker, clock, policy.Default(), decimal.NewFromInt(10000), w)

	_, err = e.Run(context.Background(), "AAPL", bars[0].Ts, bars[len(bars)-1].Ts.Add(time.Minute), types.Timeframe1m)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), w.WriteManifest())

	return w.Manifest()
}

// TestBacktestManifestsDeterministicAcrossRuns runs a full backtest
// twice over identical bars and asserts the orders and fills artifact
// streams hash identically, per the backtest determinism guarantee: a
// random fill id or a wall-clock transition timestamp leaking into
// either stream would make this fail.
func (suite *DeterminismTestSuite) TestBacktestManifestsDeterministicAcrossRuns() {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.Bar{
		bar(ts, "100", true),
		bar(ts.Add(time.Minute), "110", true),
		bar(ts.Add(2*time.Minute), "105", true),
	}

	manifestA := suite.runBacktest(suite.T().TempDir(), bars)
	manifestB := suite.runBacktest(suite.T().TempDir(), bars)

	suite.Equal(manifestA.Streams[types.ArtifactEventOrder].SHA256, manifestB.Streams[types.ArtifactEventOrder].SHA256)
	suite.Equal(manifestA.Streams[types.ArtifactEventFill].SHA256, manifestB.Streams[types.ArtifactEventFill].SHA256)
	suite.NotZero(manifestA.Streams[types.ArtifactEventOrder].EventCount)
	suite.NotZero(manifestA.Streams[types.ArtifactEventFill].EventCount)
}
