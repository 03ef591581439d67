// Package lifecycle owns the Order State Machine: idempotent order
// submission, transition-table enforcement, and fill reconciliation.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// transitions is the allowed transition table from the data model. A
// transition not present here is a programmer error.
var transitions = map[types.OrderStatus]map[types.OrderStatus]bool{
	types.OrderStatusCreated: {
		types.OrderStatusSubmitted: true,
		types.OrderStatusRejected:  true,
	},
	types.OrderStatusSubmitted: {
		types.OrderStatusAccepted:        true,
		types.OrderStatusRejected:        true,
		types.OrderStatusPartiallyFilled: true,
		types.OrderStatusFilled:          true,
		types.OrderStatusCancelled:       true,
		types.OrderStatusExpired:         true,
	},
	types.OrderStatusAccepted: {
		types.OrderStatusPartiallyFilled: true,
		types.OrderStatusFilled:          true,
		types.OrderStatusCancelled:       true,
		types.OrderStatusExpired:         true,
		types.OrderStatusRejected:        true,
	},
	types.OrderStatusPartiallyFilled: {
		types.OrderStatusPartiallyFilled: true,
		types.OrderStatusFilled:          true,
		types.OrderStatusCancelled:       true,
		types.OrderStatusExpired:         true,
	},
}

// EmitFunc receives every artifact-worthy event the state machine
// produces. The artifact writer supplies the real implementation; tests
// may pass a no-op or a recording stub.
type EmitFunc func(types.ArtifactEvent)

// StateMachine owns every OrderRecord for a run and is the sole writer
// of order status. It is safe for concurrent use.
type StateMachine struct {
	mu       sync.Mutex
	broker   ports.Broker
	clock    ports.Clock
	emit     EmitFunc
	orders   map[string]*types.OrderRecord
	byKey    map[string]string // idempotency_key -> order_id
	payloads map[string]string // idempotency_key -> payload hash
}

// New constructs an empty state machine bound to a broker adapter and
// clock. emit may be nil, in which case events are dropped.
func New(broker ports.Broker, clock ports.Clock, emit EmitFunc) *StateMachine {
	if emit == nil {
		emit = func(types.ArtifactEvent) {}
	}

	return &StateMachine{
		broker:   broker,
		clock:    clock,
		emit:     emit,
		orders:   make(map[string]*types.OrderRecord),
		byKey:    make(map[string]string),
		payloads: make(map[string]string),
	}
}

// Submit resolves idempotency and, for a genuinely new request, drives
// Created -> Submitted before handing a snapshot to the broker port.
func (m *StateMachine) Submit(ctx context.Context, req types.OrderRequest) (types.OrderRecord, error) {
	if err := req.Validate(); err != nil {
		return types.OrderRecord{}, err
	}

	m.mu.Lock()

	hash := PayloadHash(req)

	if existingID, known := m.byKey[req.IdempotencyKey]; known {
		if m.payloads[req.IdempotencyKey] != hash {
			m.mu.Unlock()
			return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeIdempotencyConflict,
				"idempotency key %s already used with a different payload", req.IdempotencyKey)
		}

		record := m.orders[existingID].Snapshot()
		m.mu.Unlock()

		return record, nil
	}

	// The idempotency key doubles as the order ID: it is already unique
	// per intent, and using it lets a broker adapter correlate GetFills
	// and CancelOrder calls without a separate handshake to learn an
	// ID the state machine only just minted.
	orderID := req.IdempotencyKey
	record := &types.OrderRecord{
		OrderID:   orderID,
		Request:   req,
		Status:    types.OrderStatusCreated,
		FilledQty: decimal.Zero,
	}

	m.orders[orderID] = record
	m.byKey[req.IdempotencyKey] = orderID
	m.payloads[req.IdempotencyKey] = hash

	if err := m.transitionLocked(record, types.OrderStatusSubmitted, "submitted to broker"); err != nil {
		m.mu.Unlock()
		return types.OrderRecord{}, err
	}

	snapshot := record.Snapshot()
	m.mu.Unlock()

	m.emit(orderEvent(m.clock.Now(), snapshot))

	result, err := m.broker.SubmitOrder(ctx, req)
	if err != nil {
		return m.handleAdapterError(orderID, err)
	}

	return m.reconcile(orderID, result)
}

// ApplyFill reconciles a fill event against its order: accumulates
// filled_qty and transitions to PartiallyFilled or Filled.
func (m *StateMachine) ApplyFill(fill types.Fill) (types.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.orders[fill.OrderID]
	if !ok {
		return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeLifecycleInvariant, "fill for unknown order %s", fill.OrderID)
	}

	// An adapter that fills synchronously reports Filled before its
	// fills are applied; accumulate them without a further transition.
	if record.Status == types.OrderStatusFilled && record.FilledQty.LessThan(record.Request.Qty) {
		record.FilledQty = record.FilledQty.Add(fill.Qty)
		snapshot := record.Snapshot()
		m.emit(orderEvent(fill.Ts, snapshot))
		m.emit(types.ArtifactEvent{Type: types.ArtifactEventFill, Ts: fill.Ts, Fill: &fill})

		return snapshot, nil
	}

	record.FilledQty = record.FilledQty.Add(fill.Qty)

	next := types.OrderStatusPartiallyFilled
	if record.FilledQty.GreaterThanOrEqual(record.Request.Qty) {
		next = types.OrderStatusFilled
	}

	if err := m.transitionLocked(record, next, "fill applied"); err != nil {
		return types.OrderRecord{}, err
	}

	snapshot := record.Snapshot()
	m.emit(orderEvent(fill.Ts, snapshot))
	m.emit(types.ArtifactEvent{Type: types.ArtifactEventFill, Ts: fill.Ts, Fill: &fill})

	return snapshot, nil
}

// Cancel transitions an order to Cancelled through the broker port.
func (m *StateMachine) Cancel(ctx context.Context, orderID string) (types.OrderRecord, error) {
	result, err := m.broker.CancelOrder(ctx, orderID)
	if err != nil {
		return m.handleAdapterError(orderID, err)
	}

	return m.reconcile(orderID, result)
}

// Reject terminates an order with a recorded reason, used for pre-trade
// rejections that never reach the broker port.
func (m *StateMachine) Reject(orderID, reason string) (types.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.orders[orderID]
	if !ok {
		return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeLifecycleInvariant, "reject for unknown order %s", orderID)
	}

	record.RejectReason = optional.Some(reason)

	if err := m.transitionLocked(record, types.OrderStatusRejected, reason); err != nil {
		return types.OrderRecord{}, err
	}

	snapshot := record.Snapshot()
	m.emit(orderEvent(m.clock.Now(), snapshot))

	return snapshot, nil
}

// Get returns a read-only snapshot of an order by ID.
func (m *StateMachine) Get(orderID string) (types.OrderRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.orders[orderID]
	if !ok {
		return types.OrderRecord{}, false
	}

	return record.Snapshot(), true
}

// OpenOrders returns snapshots of every order that has not reached a
// terminal state.
func (m *StateMachine) OpenOrders() []types.OrderRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var open []types.OrderRecord

	for _, record := range m.orders {
		if !record.Status.IsTerminal() {
			open = append(open, record.Snapshot())
		}
	}

	return open
}

func (m *StateMachine) reconcile(orderID string, result types.OrderRecord) (types.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.orders[orderID]
	if !ok {
		return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeLifecycleInvariant, "reconcile for unknown order %s", orderID)
	}

	if result.VenueOrderID.IsSome() {
		record.VenueOrderID = result.VenueOrderID
	}

	if record.Status == result.Status {
		return record.Snapshot(), nil
	}

	if err := m.transitionLocked(record, result.Status, "adapter reported status"); err != nil {
		return types.OrderRecord{}, err
	}

	snapshot := record.Snapshot()
	m.emit(orderEvent(m.clock.Now(), snapshot))

	return snapshot, nil
}

// handleAdapterError classifies a broker port error and, for a
// transient classification, records the attempt without terminating
// the order so the engine can retry with the same idempotency key.
func (m *StateMachine) handleAdapterError(orderID string, adapterErr error) (types.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.orders[orderID]
	if !ok {
		return types.OrderRecord{}, coreerrors.Newf(coreerrors.ErrCodeLifecycleInvariant, "adapter error for unknown order %s", orderID)
	}

	if coreerrors.HasCode(adapterErr, coreerrors.ErrCodeExternalTransient) {
		record.RetryCount++
		record.LastTransientError = optional.Some(adapterErr.Error())

		return record.Snapshot(), adapterErr
	}

	record.RejectReason = optional.Some(adapterErr.Error())
	if err := m.transitionLocked(record, types.OrderStatusRejected, "semantic adapter error"); err != nil {
		return types.OrderRecord{}, err
	}

	snapshot := record.Snapshot()
	m.emit(orderEvent(m.clock.Now(), snapshot))

	return snapshot, adapterErr
}

func (m *StateMachine) transitionLocked(record *types.OrderRecord, to types.OrderStatus, cause string) error {
	if record.Status.IsTerminal() {
		return coreerrors.Newf(coreerrors.ErrCodeLifecycleInvariant, "order %s is terminal at %s, cannot transition to %s", record.OrderID, record.Status, to)
	}

	if record.Status != to && !transitions[record.Status][to] {
		return coreerrors.Newf(coreerrors.ErrCodeLifecycleInvariant, "invalid transition %s -> %s for order %s", record.Status, to, record.OrderID)
	}

	from := record.Status
	record.Status = to
	record.Transitions = append(record.Transitions, types.Transition{
		Ts:    m.clock.Now(),
		From:  from,
		To:    to,
		Cause: cause,
	})

	return nil
}

func orderEvent(ts time.Time, record types.OrderRecord) types.ArtifactEvent {
	return types.ArtifactEvent{Type: types.ArtifactEventOrder, Ts: ts, Order: &record}
}
