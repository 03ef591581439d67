package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-trading/internal/artifact"
	"github.com/rxtech-lab/argo-trading/internal/broker"
	"github.com/rxtech-lab/argo-trading/internal/duckdbstore"
	"github.com/rxtech-lab/argo-trading/internal/engine"
	"github.com/rxtech-lab/argo-trading/internal/logger"
	"github.com/rxtech-lab/argo-trading/internal/normalizer"
	"github.com/rxtech-lab/argo-trading/internal/runtime/goruntime"
	"github.com/rxtech-lab/argo-trading/pkg/marketdata"
	"github.com/rxtech-lab/argo-trading/pkg/policy"
	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

func paperCommand() *cli.Command {
	return &cli.Command{
		Name:  "paper",
		Usage: "Run a strategy bundle against a live bar stream with a simulated broker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "strategy", Required: true, Usage: "Registered strategy bundle name"},
			&cli.StringSliceFlag{Name: "symbol", Required: true, Usage: "Ticker symbols to trade (repeatable)"},
			&cli.StringFlag{Name: "provider", Value: "binance", Usage: "Market data provider: binance, polygon"},
			&cli.StringFlag{Name: "out", Value: "runs/paper", Usage: "Directory to write run artifacts and state to"},
			&cli.StringFlag{Name: "policy-config", Usage: "Optional YAML file with policy.Overrides"},
			&cli.FloatFlag{Name: "start-equity", Value: 100000, Usage: "Starting cash for the run"},
			&cli.IntFlag{Name: "reorder-window-seconds", Value: 0, Usage: "Bar normalizer: seconds an out-of-order bar may be buffered before rejection"},
			&cli.StringFlag{Name: "reject-on-gap", Value: string(normalizer.RejectOnGapNever), Usage: "Bar normalizer gap policy: never or strict"},
			&cli.StringFlag{Name: "dedup-winner", Value: string(normalizer.DedupWinnerLast), Usage: "Bar normalizer dedup policy: last or first"},
		},
		Action: paperAction,
	}
}

func paperAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer log.Sync()

	strategyName := cmd.String("strategy")
	symbols := cmd.StringSlice("symbol")
	outDir := cmd.String("out")

	if len(symbols) == 0 {
		return fmt.Errorf("at least one --symbol is required")
	}

	bundle, err := strategy.Resolve(strategyName)
	if err != nil {
		return err
	}

	overrides, err := loadPolicyOverrides(cmd.String("policy-config"))
	if err != nil {
		return err
	}

	if overrides == nil {
		overrides = bundle.Overrides
	}

	policies := policy.Merge(policy.Default(), overrides)

	mdProvider, err := buildProvider(cmd.String("provider"))
	if err != nil {
		return err
	}

	writer, err := artifact.New(outDir)
	if err != nil {
		return fmt.Errorf("failed to create artifact writer: %w", err)
	}
	defer writer.Close()

	source := marketdata.NewBarSource(mdProvider)
	normalized := normalizer.New(source, normalizer.Config{
		ReorderWindowSeconds: int(cmd.Int("reorder-window-seconds")),
		RejectOnGap:          normalizer.GapPolicy(cmd.String("reject-on-gap")),
		DedupWinner:          normalizer.DedupWinner(cmd.String("dedup-winner")),
	}, func(event types.ArtifactEvent) { _ = writer.Write(event) })

	clock := systemClock{}
	simBroker := broker.NewSimulated(policies.Cost, clock)
	pricedSource := broker.NewPriceFeedSource(normalized, simBroker)

	store, err := duckdbstore.New(fmt.Sprintf("%s/state.duckdb", outDir))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer store.Close()

	startEquity := decimal.NewFromFloat(cmd.Float("start-equity"))
	if saved, ok, err := store.LoadPortfolioState(ctx); err == nil && ok {
		startEquity = saved.Cash
	}

	rt := goruntime.New()
	if err := rt.Load(bundle, strategy.Env{Clock: clock, Source: pricedSource}); err != nil {
		return fmt.Errorf("failed to load strategy bundle: %w", err)
	}

	eng := engine.NewSingleStrategy(rt, pricedSource, simBroker, clock, policies, startEquity, writer)

	log.Sugar().Infow("starting paper trading", "strategy", strategyName, "symbols", symbols)

	portfolio, runErr := eng.RunLive(ctx, symbols, types.Timeframe1m)
	if saveErr := store.SavePortfolioState(ctx, portfolio); saveErr != nil {
		log.Sugar().Warnw("failed to persist portfolio state", "error", saveErr)
	}

	if runErr != nil {
		return fmt.Errorf("paper run failed: %w", runErr)
	}

	return nil
}
