// Package strategy defines the plugin contract strategy bundles
// implement, the static import sandbox precompiled bundles must pass,
// and the registry that resolves a strategy name to a loadable bundle.
package strategy

import (
	"time"

	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// Env is the port surface a Strategy receives at AttachPorts time. It
// exposes only what a strategy is allowed to touch directly: bars come
// through OnBar, not by pulling from the data source itself, so Env
// carries the read-side ports (clock, historical lookback) rather than
// the full engine surface.
type Env struct {
	Clock  ports.Clock
	Source ports.BarDataSource
}

// Strategy is the minimal deterministic contract every bundle
// implements. OnBar returns zero or more trade signals in response to
// one closed bar; the engine, not the strategy, turns a signal into a
// sized OrderRequest. OnFill notifies of an execution; Finalize runs
// once at the end of a run for cleanup or final logging.
type Strategy interface {
	AttachPorts(env Env)
	OnBar(bar types.Bar) ([]types.Signal, error)
	OnFill(fill types.Fill) error
	Finalize() error
}

// RebalancingStrategy is the alternative contract for strategies that
// think in target portfolio weights rather than discrete signals. A
// bundle implements exactly one of Strategy or RebalancingStrategy.
type RebalancingStrategy interface {
	AttachPorts(env Env)
	TargetWeights(barTs time.Time, portfolio types.PortfolioState) (types.TargetWeights, error)
	Finalize() error
}

// Meta declares a strategy bundle's identity and the universe/timeframe
// it trades. RequiredFields names config keys the bundle expects the
// operator to supply; Validate checks only that the list is non-empty,
// not that the keys are present in any config.
type Meta struct {
	Name           string
	Universe       []string
	Timeframe      types.Timeframe
	RequiredFields []string
	Session        string
	CoreVersionRange string
}

// Bundle is the fully-resolved plugin unit the loader hands to an
// engine: identity, policy overrides, and a factory that constructs a
// fresh Strategy instance for the run.
type Bundle struct {
	Meta      Meta
	Overrides *policy.Overrides
	New       func() Strategy
}
