package strategy

import (
	"sync"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// RebalancingFactory builds a RebalancingBundle. Registered the same
// way a Factory is: from a strategy package's init().
type RebalancingFactory func() RebalancingBundle

// RebalancingBundle is the resolved plugin unit for a target-weight
// strategy, mirroring Bundle but constructing a RebalancingStrategy
// instead of a Strategy.
type RebalancingBundle struct {
	Meta      Meta
	Overrides *policy.Overrides
	New       func() RebalancingStrategy
}

var (
	rebalancingRegistryMu sync.RWMutex
	rebalancingRegistry   = map[string]RebalancingFactory{}
)

// RegisterRebalancing adds a rebalancing strategy factory under name.
// A duplicate name is a programmer error and panics at startup rather
// than silently shadowing the earlier registration, matching Register.
func RegisterRebalancing(name string, factory RebalancingFactory) {
	rebalancingRegistryMu.Lock()
	defer rebalancingRegistryMu.Unlock()

	if _, exists := rebalancingRegistry[name]; exists {
		panic("strategy: duplicate rebalancing registration for " + name)
	}

	rebalancingRegistry[name] = factory
}

// ResolveRebalancing looks up a registered rebalancing strategy by name
// and validates the bundle it produces.
func ResolveRebalancing(name string) (RebalancingBundle, error) {
	rebalancingRegistryMu.RLock()
	factory, ok := rebalancingRegistry[name]
	rebalancingRegistryMu.RUnlock()

	if !ok {
		return RebalancingBundle{}, coreerrors.Newf(coreerrors.ErrCodeStrategyLoad, "rebalancing strategy not registered: %s", name)
	}

	bundle := factory()
	if err := ValidateRebalancing(bundle); err != nil {
		return RebalancingBundle{}, err
	}

	return bundle, nil
}

// ValidateRebalancing enforces the same structural invariants Validate
// does for Bundle: a non-empty universe, a "1m" timeframe, at least one
// required field, and a constructible RebalancingStrategy.
func ValidateRebalancing(bundle RebalancingBundle) error {
	if len(bundle.Meta.Universe) == 0 {
		return coreerrors.New(coreerrors.ErrCodeStrategyValidation, "rebalancing strategy meta.universe must be non-empty")
	}

	if bundle.Meta.Timeframe != types.Timeframe1m {
		return coreerrors.Newf(coreerrors.ErrCodeStrategyValidation, "rebalancing strategy meta.timeframe must be %s, got %q", types.Timeframe1m, bundle.Meta.Timeframe)
	}

	if len(bundle.Meta.RequiredFields) == 0 {
		return coreerrors.New(coreerrors.ErrCodeStrategyValidation, "rebalancing strategy meta.required_fields must be non-empty")
	}

	if bundle.New == nil {
		return coreerrors.New(coreerrors.ErrCodeStrategyValidation, "rebalancing strategy bundle has no constructor")
	}

	return nil
}
