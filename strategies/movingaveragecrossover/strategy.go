// Package movingaveragecrossover is a reference strategy bundle: it
// crosses a fast and slow simple moving average of close price and
// enters long on a bullish cross, exits on a bearish cross. It exists
// to exercise the native (goruntime) strategy path end to end and to
// give operators a starting point to fork.
package movingaveragecrossover

import (
	"container/list"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

const bundleName = "moving_average_crossover"

func init() {
	strategy.Register(bundleName, func() strategy.Bundle {
		return strategy.Bundle{
			Meta: strategy.Meta{
				Name:           bundleName,
				Universe:       []string{"*"},
				Timeframe:      types.Timeframe1m,
				RequiredFields: []string{"fast_period", "slow_period"},
			},
			New: func() strategy.Strategy { return New(20, 50) },
		}
	})
}

// Strategy tracks a fixed-length window of closes per symbol and
// recomputes the fast/slow SMA on every bar rather than maintaining a
// running sum, trading a little CPU for an implementation with no
// float drift across a long backtest.
type Strategy struct {
	fastPeriod int
	slowPeriod int
	windows    map[string]*list.List
	inPosition map[string]bool
	env        strategy.Env
}

// New constructs a crossover strategy comparing an SMA of fastPeriod
// bars against one of slowPeriod bars.
func New(fastPeriod, slowPeriod int) *Strategy {
	return &Strategy{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		windows:    make(map[string]*list.List),
		inPosition: make(map[string]bool),
	}
}

// AttachPorts stores the environment; the strategy does not use it
// beyond satisfying the interface, since OnBar already receives every
// bar it needs.
func (s *Strategy) AttachPorts(env strategy.Env) {
	s.env = env
}

// OnBar folds bar.Close into the symbol's rolling window and emits a
// signal only on the bar the crossover actually happens, not on every
// bar the fast average happens to sit above the slow one.
func (s *Strategy) OnBar(bar types.Bar) ([]types.Signal, error) {
	window, ok := s.windows[bar.Symbol]
	if !ok {
		window = list.New()
		s.windows[bar.Symbol] = window
	}

	prevFast, prevSlow, havePrev := s.averages(window)

	window.PushBack(bar.Close)
	for window.Len() > s.slowPeriod {
		window.Remove(window.Front())
	}

	fast, slow, haveNow := s.averages(window)
	if !havePrev || !haveNow {
		return nil, nil
	}

	crossedUp := prevFast.LessThanOrEqual(prevSlow) && fast.GreaterThan(slow)
	crossedDown := prevFast.GreaterThanOrEqual(prevSlow) && fast.LessThan(slow)

	switch {
	case crossedUp && !s.inPosition[bar.Symbol]:
		s.inPosition[bar.Symbol] = true
		return []types.Signal{s.signal(bar, types.ActionEnterLong)}, nil
	case crossedDown && s.inPosition[bar.Symbol]:
		s.inPosition[bar.Symbol] = false
		return []types.Signal{s.signal(bar, types.ActionExitLong)}, nil
	default:
		return nil, nil
	}
}

// averages returns the fast/slow SMA of window's current contents. ok
// is false until the window holds at least slowPeriod bars, since a
// partial slow average is not comparable to a full fast one.
func (s *Strategy) averages(window *list.List) (fast, slow decimal.Decimal, ok bool) {
	if window.Len() < s.slowPeriod {
		return decimal.Zero, decimal.Zero, false
	}

	var slowSum decimal.Decimal

	fastStart := window.Len() - s.fastPeriod

	var fastSum decimal.Decimal

	i := 0

	for e := window.Front(); e != nil; e = e.Next() {
		price := e.Value.(decimal.Decimal)
		slowSum = slowSum.Add(price)

		if i >= fastStart {
			fastSum = fastSum.Add(price)
		}

		i++
	}

	fast = fastSum.Div(decimal.NewFromInt(int64(s.fastPeriod)))
	slow = slowSum.Div(decimal.NewFromInt(int64(s.slowPeriod)))

	return fast, slow, true
}

func (s *Strategy) signal(bar types.Bar, action types.SignalAction) types.Signal {
	return types.Signal{
		SignalID:     bar.Symbol + ":" + string(action) + ":" + bar.Ts.String(),
		Ts:           bar.Ts,
		Symbol:       bar.Symbol,
		Action:       action,
		Strength:     1,
		StrategyName: bundleName,
	}
}

// OnFill is a no-op: the strategy sizes off crossovers alone and does
// not adapt its logic to individual execution reports.
func (s *Strategy) OnFill(types.Fill) error {
	return nil
}

// Finalize has nothing to flush; the strategy holds no external
// resources.
func (s *Strategy) Finalize() error {
	return nil
}

var _ strategy.Strategy = (*Strategy)(nil)
