package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalAction is the strategy intent produced by SingleStrategyEngine's
// on_bar hook.
type SignalAction string

const (
	ActionEnterLong  SignalAction = "enter_long"
	ActionExitLong   SignalAction = "exit_long"
	ActionEnterShort SignalAction = "enter_short"
	ActionExitShort  SignalAction = "exit_short"
	ActionHold       SignalAction = "hold"
)

// Signal is the intermediate representation between a strategy's on_bar
// hook and the sizing/risk pipeline.
type Signal struct {
	SignalID     string         `json:"signal_id" yaml:"signal_id"`
	Ts           time.Time      `json:"ts" yaml:"ts"`
	Symbol       string         `json:"symbol" yaml:"symbol"`
	Action       SignalAction   `json:"action" yaml:"action"`
	Strength     float64        `json:"strength" yaml:"strength"`
	StrategyName string         `json:"strategy_name" yaml:"strategy_name"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// TargetWeights is the intent produced by RebalancingEngine's
// target_weights hook. Weights maps symbol to a fraction of equity;
// the engine enforces sum <= 1 plus the turnover cap, not this type.
type TargetWeights struct {
	Ts        time.Time                  `json:"ts" yaml:"ts"`
	Weights   map[string]decimal.Decimal `json:"weights" yaml:"weights"`
	Rebalance bool                       `json:"rebalance" yaml:"rebalance"`
	Reason    string                     `json:"reason,omitempty" yaml:"reason,omitempty"`
}
