// Package goruntime hosts a strategy bundle in-process. It trades
// isolation for zero marshaling overhead and is intended for
// development, backtests over trusted strategy code, and any bundle
// that has not gone through the WASM sandbox build.
package goruntime

import (
	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// Runtime is the native runtime.StrategyRuntime implementation.
type Runtime struct {
	strategy strategy.Strategy
}

// New constructs an unloaded native runtime.
func New() *Runtime {
	return &Runtime{}
}

// Load instantiates the bundle's Strategy and attaches its ports.
func (r *Runtime) Load(bundle strategy.Bundle, env strategy.Env) error {
	r.strategy = bundle.New()
	r.strategy.AttachPorts(env)

	return nil
}

// OnBar forwards to the hosted strategy.
func (r *Runtime) OnBar(bar types.Bar) ([]types.Signal, error) {
	return r.strategy.OnBar(bar)
}

// OnFill forwards to the hosted strategy.
func (r *Runtime) OnFill(fill types.Fill) error {
	return r.strategy.OnFill(fill)
}

// Finalize forwards to the hosted strategy.
func (r *Runtime) Finalize() error {
	return r.strategy.Finalize()
}
