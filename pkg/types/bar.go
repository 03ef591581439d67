// Package types defines the immutable value types shared by every
// component of the core: bars, signals, orders, fills, portfolio and risk
// state, and the artifact events emitted by a run.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

// Timeframe identifies the bar aggregation period. The core locks trading
// decisions to Timeframe1m; the type is a string alias rather than a
// literal so a future core can widen the allowed set without breaking the
// StrategyMeta wire shape.
type Timeframe string

const (
	Timeframe1m Timeframe = "1m"
)

// Bar is a single OHLCV record indexed by close time in UTC. Ts represents
// the bar's close time, not its open time.
type Bar struct {
	Ts        time.Time              `json:"ts" yaml:"ts" validate:"required"`
	Symbol    string                 `json:"symbol" yaml:"symbol" validate:"required"`
	Open      decimal.Decimal        `json:"open" yaml:"open" validate:"required"`
	High      decimal.Decimal        `json:"high" yaml:"high" validate:"required"`
	Low       decimal.Decimal        `json:"low" yaml:"low" validate:"required"`
	Close     decimal.Decimal        `json:"close" yaml:"close" validate:"required"`
	Volume    decimal.Decimal        `json:"volume" yaml:"volume"`
	Timeframe Timeframe              `json:"timeframe" yaml:"timeframe" validate:"required,eq=1m"`
	IsClosed  bool                   `json:"is_closed" yaml:"is_closed"`
	Source    optional.Option[string] `json:"source,omitempty" yaml:"source,omitempty"`
	// IngestedAt is wall-clock time the bar was normalized. Observability
	// only; never consulted by trading logic.
	IngestedAt optional.Option[time.Time] `json:"ingested_at,omitempty" yaml:"ingested_at,omitempty"`
}

// Validate checks the struct tags and the timezone invariant that struct
// tags alone cannot express (UTC location, not just a non-zero value).
func (b *Bar) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid bar", err)
	}

	if b.Ts.Location() != time.UTC {
		return coreerrors.Newf(coreerrors.ErrCodeBarTimezone, "bar timestamp for %s is not UTC: %s", b.Symbol, b.Ts.Location())
	}

	return nil
}

// Key returns the identity tuple bars are deduplicated and sorted on.
func (b Bar) Key() BarKey {
	return BarKey{Symbol: b.Symbol, Ts: b.Ts, Timeframe: b.Timeframe}
}

// BarKey is the unique identity of a bar: (symbol, ts, timeframe).
type BarKey struct {
	Symbol    string
	Ts        time.Time
	Timeframe Timeframe
}
