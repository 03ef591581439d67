package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the order type accepted by the broker port.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus is a node in the order lifecycle state machine.
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "Created"
	OrderStatusSubmitted       OrderStatus = "Submitted"
	OrderStatusAccepted        OrderStatus = "Accepted"
	OrderStatusRejected        OrderStatus = "Rejected"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusExpired         OrderStatus = "Expired"
)

// TerminalStatuses is the absorbing set of the order lifecycle.
var TerminalStatuses = map[OrderStatus]bool{
	OrderStatusFilled:    true,
	OrderStatusCancelled: true,
	OrderStatusExpired:   true,
	OrderStatusRejected:  true,
}

// IsTerminal reports whether status is one of the lifecycle's absorbing states.
func (s OrderStatus) IsTerminal() bool {
	return TerminalStatuses[s]
}

// OrderRequest is the immutable submission a strategy/engine hands to the
// Order State Machine. IdempotencyKey is canonical:
// "{strategy_name}:{symbol}:{side}:{bar_ts_iso}:{seq}" unless an external
// signal UUID is supplied by the caller.
type OrderRequest struct {
	IdempotencyKey string                       `json:"idempotency_key" yaml:"idempotency_key" validate:"required"`
	CreatedAt      time.Time                    `json:"created_at" yaml:"created_at" validate:"required"`
	Symbol         string                       `json:"symbol" yaml:"symbol" validate:"required"`
	Side           Side                         `json:"side" yaml:"side" validate:"required,oneof=buy sell"`
	OrderType      OrderType                    `json:"order_type" yaml:"order_type" validate:"required,oneof=market limit stop stop_limit"`
	Qty            decimal.Decimal              `json:"qty" yaml:"qty" validate:"required"`
	LimitPrice     optional.Option[decimal.Decimal] `json:"limit_price,omitempty" yaml:"limit_price,omitempty"`
	StopPrice      optional.Option[decimal.Decimal] `json:"stop_price,omitempty" yaml:"stop_price,omitempty"`
	StrategyName   string                       `json:"strategy_name" yaml:"strategy_name" validate:"required"`
	Metadata       map[string]any               `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate applies struct-tag validation plus the cross-field invariants
// (positive qty, limit/stop price required for their order types) that
// tags alone cannot express.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeOrderValidation, "invalid order request", err)
	}

	if !r.Qty.IsPositive() {
		return coreerrors.Newf(coreerrors.ErrCodeOrderValidation, "qty must be positive, got %s", r.Qty.String())
	}

	if (r.OrderType == OrderTypeLimit || r.OrderType == OrderTypeStopLimit) && r.LimitPrice.IsNone() {
		return coreerrors.Newf(coreerrors.ErrCodeOrderValidation, "%s order requires limit_price", r.OrderType)
	}

	if (r.OrderType == OrderTypeStop || r.OrderType == OrderTypeStopLimit) && r.StopPrice.IsNone() {
		return coreerrors.Newf(coreerrors.ErrCodeOrderValidation, "%s order requires stop_price", r.OrderType)
	}

	return nil
}

// CanonicalIdempotencyKey builds the default idempotency key described in
// the data model: "{strategy}:{symbol}:{side}:{bar_ts_iso}:{seq}".
func CanonicalIdempotencyKey(strategyName, symbol string, side Side, barTs time.Time, seq int) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d", strategyName, symbol, side, barTs.UTC().Format(time.RFC3339Nano), seq)
}

// Transition records one lifecycle step of an order.
type Transition struct {
	Ts    time.Time   `json:"ts" yaml:"ts"`
	From  OrderStatus `json:"from" yaml:"from"`
	To    OrderStatus `json:"to" yaml:"to"`
	Cause string      `json:"cause" yaml:"cause"`
}

// OrderRecord is the mutable projection of an OrderRequest owned by the
// Order State Machine. Adapters receive read-only snapshots of it.
type OrderRecord struct {
	OrderID         string                          `json:"order_id" yaml:"order_id"`
	Request         OrderRequest                    `json:"request" yaml:"request"`
	Status          OrderStatus                     `json:"status" yaml:"status"`
	FilledQty       decimal.Decimal                 `json:"filled_qty" yaml:"filled_qty"`
	VenueOrderID    optional.Option[string]          `json:"venue_order_id,omitempty" yaml:"venue_order_id,omitempty"`
	RejectReason    optional.Option[string]          `json:"reject_reason,omitempty" yaml:"reject_reason,omitempty"`
	Transitions     []Transition                    `json:"transitions" yaml:"transitions"`
	RetryCount      int                             `json:"retry_count" yaml:"retry_count"`
	LastTransientError optional.Option[string]      `json:"last_transient_error,omitempty" yaml:"last_transient_error,omitempty"`
}

// Snapshot returns a value copy safe to hand to a broker adapter; the
// adapter must not be able to mutate the state machine's owned record.
func (o *OrderRecord) Snapshot() OrderRecord {
	transitions := make([]Transition, len(o.Transitions))
	copy(transitions, o.Transitions)
	snap := *o
	snap.Transitions = transitions

	return snap
}
