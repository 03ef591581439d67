package strategy

import (
	"sync"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// Factory builds a Bundle. Native (goruntime) strategies register a
// Factory in their package's init() via Register; the composition root
// pulls them in with a blank import of the strategies package.
type Factory func() Bundle

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a strategy factory under name. Called from a strategy
// package's init(); a duplicate name is a programmer error and panics
// at startup rather than silently shadowing the earlier registration.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic("strategy: duplicate registration for " + name)
	}

	registry[name] = factory
}

// Resolve looks up a registered strategy by name and validates the
// bundle it produces.
func Resolve(name string) (Bundle, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return Bundle{}, coreerrors.Newf(coreerrors.ErrCodeStrategyLoad, "strategy not registered: %s", name)
	}

	bundle := factory()
	if err := Validate(bundle); err != nil {
		return Bundle{}, err
	}

	return bundle, nil
}

// Validate enforces the structural invariants a loaded bundle must
// satisfy before an engine will run it: a non-empty universe, a "1m"
// timeframe, at least one required field, and a constructible Strategy.
func Validate(bundle Bundle) error {
	if len(bundle.Meta.Universe) == 0 {
		return coreerrors.New(coreerrors.ErrCodeStrategyValidation, "strategy meta.universe must be non-empty")
	}

	if bundle.Meta.Timeframe != types.Timeframe1m {
		return coreerrors.Newf(coreerrors.ErrCodeStrategyValidation, "strategy meta.timeframe must be %s, got %q", types.Timeframe1m, bundle.Meta.Timeframe)
	}

	if len(bundle.Meta.RequiredFields) == 0 {
		return coreerrors.New(coreerrors.ErrCodeStrategyValidation, "strategy meta.required_fields must be non-empty")
	}

	if bundle.New == nil {
		return coreerrors.New(coreerrors.ErrCodeStrategyValidation, "strategy bundle has no constructor")
	}

	return nil
}
