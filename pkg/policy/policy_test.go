package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PolicyTestSuite struct {
	suite.Suite
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicyTestSuite))
}

func (suite *PolicyTestSuite) TestCostPolicyCommission() {
	tests := []struct {
		name     string
		policy   CostPolicy
		notional string
		expected string
	}{
		{"default 5bps on 10000", DefaultCostPolicy(), "10000", "5"},
		{"zero notional", DefaultCostPolicy(), "0", "0"},
		{"min fee floor applies", CostPolicy{CommissionBps: decimal.NewFromInt(5), MinFee: decimal.NewFromInt(2)}, "100", "2"},
		{"fee above floor wins", CostPolicy{CommissionBps: decimal.NewFromInt(5), MinFee: decimal.NewFromInt(2)}, "1000000", "500"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			notional := decimal.RequireFromString(tc.notional)
			expected := decimal.RequireFromString(tc.expected)
			suite.True(expected.Equal(tc.policy.Commission(notional)), "got %s want %s", tc.policy.Commission(notional), expected)
		})
	}
}

func (suite *PolicyTestSuite) TestCostPolicySlippage() {
	p := CostPolicy{SlippageBps: decimal.NewFromInt(10)}
	price := decimal.NewFromInt(100)

	buyPrice := p.Slippage(price, true)
	sellPrice := p.Slippage(price, false)

	suite.True(buyPrice.GreaterThan(price))
	suite.True(sellPrice.LessThan(price))
}

func (suite *PolicyTestSuite) TestMergeCostOverrideNil() {
	defaults := DefaultCostPolicy()
	merged := MergeCostOverride(defaults, nil)
	suite.Equal(defaults, merged)
}

func (suite *PolicyTestSuite) TestMergeCostOverridePartial() {
	defaults := DefaultCostPolicy()
	commission := decimal.NewFromInt(20)
	merged := MergeCostOverride(defaults, &CostOverride{CommissionBps: &commission})

	suite.True(merged.CommissionBps.Equal(commission))
	suite.True(merged.SlippageBps.Equal(defaults.SlippageBps))
	suite.True(merged.MinFee.Equal(defaults.MinFee))
}

func (suite *PolicyTestSuite) TestMergeRiskOverrideFlattenOnKillSwitch() {
	defaults := DefaultRiskPolicy()
	suite.False(defaults.FlattenOnKillSwitch)

	flatten := true
	merged := MergeRiskOverride(defaults, &RiskOverride{FlattenOnKillSwitch: &flatten})
	suite.True(merged.FlattenOnKillSwitch)
}

func (suite *PolicyTestSuite) TestMergeSizingOverridePartial() {
	defaults := DefaultSizingPolicy()
	perTradeRisk := decimal.NewFromFloat(0.02)
	merged := MergeSizingOverride(defaults, &SizingOverride{PerTradeRisk: &perTradeRisk})

	suite.True(merged.PerTradeRisk.Equal(perTradeRisk))
	suite.True(merged.TargetVol.Equal(defaults.TargetVol))
}

func (suite *PolicyTestSuite) TestMergeSetIndependentDimensions() {
	defaults := Default()
	riskDD := decimal.NewFromFloat(0.5)

	merged := Merge(defaults, &Overrides{
		Risk: &RiskOverride{KillSwitchDD: &riskDD},
	})

	suite.True(merged.Risk.KillSwitchDD.Equal(riskDD))
	suite.Equal(defaults.Cost, merged.Cost)
	suite.Equal(defaults.Sizing, merged.Sizing)
}

func (suite *PolicyTestSuite) TestMergeSetNilOverrides() {
	defaults := Default()
	merged := Merge(defaults, nil)
	suite.Equal(defaults, merged)
}
