// Package runtime hosts a loaded strategy bundle and exposes it to an
// engine through a uniform interface, regardless of whether the
// strategy runs in-process (goruntime) or isolated in a WASM sandbox
// (wasm).
package runtime

import (
	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// StrategyRuntime hosts one running instance of a strategy bundle. Load
// prepares the runtime from a resolved bundle; the remaining methods
// mirror strategy.Strategy so an engine can treat both runtime kinds
// identically after Load succeeds.
type StrategyRuntime interface {
	Load(bundle strategy.Bundle, env strategy.Env) error
	OnBar(bar types.Bar) ([]types.Signal, error)
	OnFill(fill types.Fill) error
	Finalize() error
}
