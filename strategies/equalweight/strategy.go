// Package equalweight is a reference RebalancingStrategy bundle: it
// holds a fixed universe at equal target weight and rebalances every
// bar. It exists to exercise RebalancingEngine end to end, the
// counterpart to movingaveragecrossover exercising SingleStrategyEngine.
package equalweight

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

const bundleName = "equal_weight"

func init() {
	strategy.RegisterRebalancing(bundleName, func() strategy.RebalancingBundle {
		return strategy.RebalancingBundle{
			Meta: strategy.Meta{
				Name:           bundleName,
				Universe:       []string{"*"},
				Timeframe:      types.Timeframe1m,
				RequiredFields: []string{"symbols"},
			},
			New: func() strategy.RebalancingStrategy { return New(defaultSymbols) },
		}
	})
}

var defaultSymbols = []string{"BTCUSDT", "ETHUSDT"}

// Strategy targets an equal fraction of equity in each configured
// symbol, rebalancing on every bar it is asked for target weights.
type Strategy struct {
	symbols []string
	env     strategy.Env
}

// New constructs an equal-weight strategy over symbols.
func New(symbols []string) *Strategy {
	return &Strategy{symbols: symbols}
}

// AttachPorts stores the environment; the strategy has no use for it
// beyond satisfying the interface, since TargetWeights already receives
// the marked portfolio it needs.
func (s *Strategy) AttachPorts(env strategy.Env) {
	s.env = env
}

// TargetWeights splits equity evenly across the configured symbols and
// asks to rebalance on every call.
func (s *Strategy) TargetWeights(barTs time.Time, _ types.PortfolioState) (types.TargetWeights, error) {
	if len(s.symbols) == 0 {
		return types.TargetWeights{Ts: barTs}, nil
	}

	share := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(s.symbols))))

	weights := make(map[string]decimal.Decimal, len(s.symbols))
	for _, symbol := range s.symbols {
		weights[symbol] = share
	}

	return types.TargetWeights{
		Ts:        barTs,
		Weights:   weights,
		Rebalance: true,
		Reason:    "equal_weight_periodic",
	}, nil
}

// Finalize has nothing to flush; the strategy holds no external
// resources.
func (s *Strategy) Finalize() error {
	return nil
}

var _ strategy.RebalancingStrategy = (*Strategy)(nil)
