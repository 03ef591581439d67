// Package safety implements the live safety gate: the dual
// environment-variable assertion required before the composition root
// or a live broker adapter will let real orders reach a venue.
package safety

import (
	"os"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

const (
	envLiveAPI     = "LIVE_API"
	envConfirmLive = "CONFIRM_LIVE"
)

// Action is the deployment-time choice for what happens when the gate
// is not satisfied.
type Action string

const (
	// ActionFail hard-fails with a LiveSafetyGateError.
	ActionFail Action = "fail"
	// ActionDowngrade falls back to a paper adapter with a recorded warning.
	ActionDowngrade Action = "downgrade"
)

// Result is the gate's decision.
type Result struct {
	// Allowed is true when live execution may proceed.
	Allowed bool
	// Downgraded is true when the gate chose to fall back to paper
	// rather than fail outright.
	Downgraded bool
	// Warning is set when Downgraded is true, for the composition root
	// to log and surface to the operator.
	Warning string
}

// Check reads LIVE_API and CONFIRM_LIVE from the process environment
// and applies action if either assertion is missing. It is intended to
// be called twice: once at the composition root before constructing a
// live broker adapter, and again inside that adapter's own
// constructor, so a caller that bypasses the composition root's check
// still cannot reach a live venue unchecked.
func Check(action Action) (Result, error) {
	liveAPI := os.Getenv(envLiveAPI) == "1"
	confirmLive := os.Getenv(envConfirmLive) == "YES"

	if liveAPI && confirmLive {
		return Result{Allowed: true}, nil
	}

	switch action {
	case ActionDowngrade:
		return Result{
			Allowed:    false,
			Downgraded: true,
			Warning:    "live safety gate not satisfied (LIVE_API=1 and CONFIRM_LIVE=YES both required); downgrading to paper adapter",
		}, nil
	default:
		return Result{}, coreerrors.New(coreerrors.ErrCodeLiveSafetyGate,
			"live safety gate not satisfied: both LIVE_API=1 and CONFIRM_LIVE=YES are required")
	}
}
