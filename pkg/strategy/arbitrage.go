package strategy

import (
	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

// AlignmentPolicy describes how an arbitrage bundle wants its legs'
// bars time-aligned before it sees them. Declared for interface
// completeness; no runtime consumes it in this core.
type AlignmentPolicy string

const (
	AlignmentSameTimestamp AlignmentPolicy = "same_timestamp"
	AlignmentNearest       AlignmentPolicy = "nearest"
)

// LegOrderPolicy describes the submission order across an arbitrage
// bundle's legs when it eventually fires orders.
type LegOrderPolicy string

const (
	LegOrderSimultaneous LegOrderPolicy = "simultaneous"
	LegOrderSequential   LegOrderPolicy = "sequential"
)

// ArbitrageLeg names one side of a multi-instrument bundle.
type ArbitrageLeg struct {
	Symbol string
	Role   string
}

// ArbitrageBundle is the declared shape of a multi-leg strategy. No
// runtime in this core executes it: ValidateArbitrage exists so a
// loader can reject one at load time with a clear reason instead of
// silently misinterpreting it as a single-instrument Strategy.
type ArbitrageBundle struct {
	Meta            Meta
	Legs            []ArbitrageLeg
	AlignmentPolicy AlignmentPolicy
	LegOrderPolicy  LegOrderPolicy
}

// ValidateArbitrage always returns an error: arbitrage bundles declare
// their shape for forward compatibility, but this core provides no
// execution path for multi-leg strategies.
func ValidateArbitrage(bundle ArbitrageBundle) error {
	return coreerrors.Newf(coreerrors.ErrCodeStrategyValidation,
		"arbitrage bundle %q declares %d legs but this core provides no arbitrage runtime", bundle.Meta.Name, len(bundle.Legs))
}
