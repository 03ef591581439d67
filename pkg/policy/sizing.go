package policy

import "github.com/shopspring/decimal"

// SizingPolicy bounds how large a position a signal or target-weight
// vector may open. PerTradeRisk is the fraction of equity a single
// stop-distance-sized entry may risk; MaxGrossExposure caps total
// absolute exposure as a multiple of equity.
type SizingPolicy struct {
	TargetVol        decimal.Decimal `json:"target_vol" yaml:"target_vol"`
	MaxGrossExposure decimal.Decimal `json:"max_gross_exposure" yaml:"max_gross_exposure"`
	PerTradeRisk     decimal.Decimal `json:"per_trade_risk" yaml:"per_trade_risk"`
}

// DefaultSizingPolicy matches the reference runtime's defaults.
func DefaultSizingPolicy() SizingPolicy {
	return SizingPolicy{
		TargetVol:        decimal.NewFromFloat(0.15),
		MaxGrossExposure: decimal.NewFromInt(1),
		PerTradeRisk:     decimal.NewFromFloat(0.01),
	}
}

// SizingOverride is the strategy-bundle-declared partial override of
// SizingPolicy; nil fields fall back to the default.
type SizingOverride struct {
	TargetVol        *decimal.Decimal `json:"target_vol,omitempty" yaml:"target_vol,omitempty"`
	MaxGrossExposure *decimal.Decimal `json:"max_gross_exposure,omitempty" yaml:"max_gross_exposure,omitempty"`
	PerTradeRisk     *decimal.Decimal `json:"per_trade_risk,omitempty" yaml:"per_trade_risk,omitempty"`
}

// MergeSizingOverride field-wise replaces defaults with any override
// field that is present, leaving the rest untouched.
func MergeSizingOverride(defaults SizingPolicy, override *SizingOverride) SizingPolicy {
	if override == nil {
		return defaults
	}

	merged := defaults
	if override.TargetVol != nil {
		merged.TargetVol = *override.TargetVol
	}

	if override.MaxGrossExposure != nil {
		merged.MaxGrossExposure = *override.MaxGrossExposure
	}

	if override.PerTradeRisk != nil {
		merged.PerTradeRisk = *override.PerTradeRisk
	}

	return merged
}
