package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-trading/internal/logger"
	"github.com/rxtech-lab/argo-trading/internal/safety"
)

// liveCommand is the entry point a real deployment would extend with a
// network broker adapter. The core intentionally ships none: broker
// SDKs, order-routing transports, and venue credentials are external
// collaborators the core only ever reaches through ports.Broker. This
// command runs the same dual-env-var safety gate a live adapter's own
// constructor must run, then falls back to (or refuses to substitute)
// the in-core simulated broker per the operator's --on-ungated choice,
// so "argocore live" never silently sends an order to a venue.
func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Run against a live broker adapter, gated by LIVE_API and CONFIRM_LIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "strategy", Required: true, Usage: "Registered strategy bundle name"},
			&cli.StringSliceFlag{Name: "symbol", Required: true, Usage: "Ticker symbols to trade (repeatable)"},
			&cli.StringFlag{Name: "provider", Value: "binance", Usage: "Market data provider: binance, polygon"},
			&cli.StringFlag{Name: "out", Value: "runs/live", Usage: "Directory to write run artifacts and state to"},
			&cli.StringFlag{Name: "policy-config", Usage: "Optional YAML file with policy.Overrides"},
			&cli.FloatFlag{Name: "start-equity", Value: 100000, Usage: "Starting cash for the run"},
			&cli.StringFlag{
				Name:  "on-ungated",
				Value: string(safety.ActionFail),
				Usage: "What to do if the live safety gate is not satisfied: fail or downgrade",
			},
		},
		Action: liveAction,
	}
}

func liveAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer log.Sync()

	action := safety.Action(cmd.String("on-ungated"))

	result, err := safety.Check(action)
	if err != nil {
		return fmt.Errorf("live safety gate refused to proceed: %w", err)
	}

	if !result.Allowed {
		if !result.Downgraded {
			return fmt.Errorf("live safety gate not satisfied and downgrade not requested")
		}

		log.Sugar().Warnw("live safety gate not satisfied, downgrading to simulated broker", "warning", result.Warning)

		return paperAction(ctx, cmd)
	}

	// A satisfied gate still has nowhere to route real orders: this core
	// exposes ports.Broker for a network adapter to implement, but ships
	// none itself. Until one is wired in here, a gated-open run still
	// executes against the simulated broker rather than silently no-op.
	log.Sugar().Infow("live safety gate satisfied but no network broker adapter is wired into this build; running against the simulated broker")

	return paperAction(ctx, cmd)
}
