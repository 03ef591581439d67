package policy

import "github.com/shopspring/decimal"

// RiskPolicy bounds leverage, position notional, and drawdown. Reaching
// KillSwitchDD trips the risk monitor's kill switch; MaxDrawdown is a
// softer pre-trade rejection threshold checked before the kill switch.
type RiskPolicy struct {
	MaxLeverage         decimal.Decimal `json:"max_leverage" yaml:"max_leverage"`
	MaxPositionNotional decimal.Decimal `json:"max_position_notional" yaml:"max_position_notional"`
	MaxDrawdown         decimal.Decimal `json:"max_drawdown" yaml:"max_drawdown"`
	KillSwitchDD        decimal.Decimal `json:"kill_switch_dd" yaml:"kill_switch_dd"`
	FlattenOnKillSwitch bool            `json:"flatten_on_kill_switch" yaml:"flatten_on_kill_switch"`
}

// DefaultRiskPolicy matches the reference runtime's defaults.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		MaxLeverage:         decimal.NewFromInt(1),
		MaxPositionNotional: decimal.NewFromInt(100000),
		MaxDrawdown:         decimal.NewFromFloat(0.20),
		KillSwitchDD:        decimal.NewFromFloat(0.30),
		FlattenOnKillSwitch: false,
	}
}

// RiskOverride is the strategy-bundle-declared partial override of
// RiskPolicy. FlattenOnKillSwitch has no pointer form: bundles opt into
// full liquidation explicitly via PolicyOverrides, they cannot leave it
// unset and inherit a "maybe" — see MergeRiskOverride.
type RiskOverride struct {
	MaxLeverage         *decimal.Decimal `json:"max_leverage,omitempty" yaml:"max_leverage,omitempty"`
	MaxPositionNotional *decimal.Decimal `json:"max_position_notional,omitempty" yaml:"max_position_notional,omitempty"`
	MaxDrawdown         *decimal.Decimal `json:"max_drawdown,omitempty" yaml:"max_drawdown,omitempty"`
	KillSwitchDD        *decimal.Decimal `json:"kill_switch_dd,omitempty" yaml:"kill_switch_dd,omitempty"`
	FlattenOnKillSwitch *bool            `json:"flatten_on_kill_switch,omitempty" yaml:"flatten_on_kill_switch,omitempty"`
}

// MergeRiskOverride field-wise replaces defaults with any override field
// that is present, leaving the rest untouched.
func MergeRiskOverride(defaults RiskPolicy, override *RiskOverride) RiskPolicy {
	if override == nil {
		return defaults
	}

	merged := defaults
	if override.MaxLeverage != nil {
		merged.MaxLeverage = *override.MaxLeverage
	}

	if override.MaxPositionNotional != nil {
		merged.MaxPositionNotional = *override.MaxPositionNotional
	}

	if override.MaxDrawdown != nil {
		merged.MaxDrawdown = *override.MaxDrawdown
	}

	if override.KillSwitchDD != nil {
		merged.KillSwitchDD = *override.KillSwitchDD
	}

	if override.FlattenOnKillSwitch != nil {
		merged.FlattenOnKillSwitch = *override.FlattenOnKillSwitch
	}

	return merged
}
