package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// KillSwitchReason names which risk boundary tripped the kill switch.
type KillSwitchReason string

const (
	KillSwitchNone            KillSwitchReason = ""
	KillSwitchMaxDrawdown     KillSwitchReason = "max_drawdown"
	KillSwitchDailyLoss       KillSwitchReason = "daily_loss_limit"
	KillSwitchMaxPositionSize KillSwitchReason = "max_position_size"
	KillSwitchManual          KillSwitchReason = "manual"
)

// RiskState is the risk monitor's running view of the portfolio. Tripped
// latches true for the remainder of the run once set; the monitor never
// resets it automatically.
type RiskState struct {
	Ts              time.Time        `json:"ts" yaml:"ts"`
	Tripped         bool             `json:"tripped" yaml:"tripped"`
	TripReason      KillSwitchReason `json:"trip_reason,omitempty" yaml:"trip_reason,omitempty"`
	TrippedAt       time.Time        `json:"tripped_at,omitzero" yaml:"tripped_at,omitempty"`
	DailyStartEquity decimal.Decimal `json:"daily_start_equity" yaml:"daily_start_equity"`
	FlattenedOnTrip bool             `json:"flattened_on_trip" yaml:"flattened_on_trip"`
}

// Trip latches the kill switch. Calling Trip on an already-tripped state
// is a no-op that preserves the original reason and timestamp; the first
// trip wins.
func (s RiskState) Trip(reason KillSwitchReason, at time.Time) RiskState {
	if s.Tripped {
		return s
	}

	next := s
	next.Tripped = true
	next.TripReason = reason
	next.TrippedAt = at

	return next
}
