package policy

import "github.com/shopspring/decimal"

// CostPolicy prices the frictions applied to a simulated or paper fill:
// commission, slippage, and a fee floor. All rates are in basis points.
type CostPolicy struct {
	CommissionBps decimal.Decimal `json:"commission_bps" yaml:"commission_bps"`
	SlippageBps   decimal.Decimal `json:"slippage_bps" yaml:"slippage_bps"`
	MinFee        decimal.Decimal `json:"min_fee" yaml:"min_fee"`
}

// DefaultCostPolicy matches the reference runtime's defaults: 5bps
// commission, 1bp slippage, no fee floor.
func DefaultCostPolicy() CostPolicy {
	return CostPolicy{
		CommissionBps: decimal.NewFromInt(5),
		SlippageBps:   decimal.NewFromInt(1),
		MinFee:        decimal.Zero,
	}
}

// CostOverride is the strategy-bundle-declared partial override of
// CostPolicy; nil fields fall back to the default.
type CostOverride struct {
	CommissionBps *decimal.Decimal `json:"commission_bps,omitempty" yaml:"commission_bps,omitempty"`
	SlippageBps   *decimal.Decimal `json:"slippage_bps,omitempty" yaml:"slippage_bps,omitempty"`
	MinFee        *decimal.Decimal `json:"min_fee,omitempty" yaml:"min_fee,omitempty"`
}

// MergeCostOverride field-wise replaces defaults with any override field
// that is present, leaving the rest untouched.
func MergeCostOverride(defaults CostPolicy, override *CostOverride) CostPolicy {
	if override == nil {
		return defaults
	}

	merged := defaults
	if override.CommissionBps != nil {
		merged.CommissionBps = *override.CommissionBps
	}

	if override.SlippageBps != nil {
		merged.SlippageBps = *override.SlippageBps
	}

	if override.MinFee != nil {
		merged.MinFee = *override.MinFee
	}

	return merged
}

const bpsDivisor = 10000

// Commission computes the commission fee owed on a fill of notional
// value (qty * price), floored at MinFee.
func (p CostPolicy) Commission(notional decimal.Decimal) decimal.Decimal {
	fee := notional.Abs().Mul(p.CommissionBps).Div(decimal.NewFromInt(bpsDivisor))
	if fee.LessThan(p.MinFee) {
		return p.MinFee
	}

	return fee
}

// Slippage returns the per-unit price adjustment applied against the
// order's direction: it makes buys pay more and sells receive less.
func (p CostPolicy) Slippage(price decimal.Decimal, buy bool) decimal.Decimal {
	adj := price.Mul(p.SlippageBps).Div(decimal.NewFromInt(bpsDivisor))
	if buy {
		return price.Add(adj)
	}

	return price.Sub(adj)
}
