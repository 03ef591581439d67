package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

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

// backtestRunner is the common surface SingleStrategyEngine and
// RebalancingEngine both expose; backtestAction picks which concrete
// engine to build from the --engine flag and drives either through
// this interface.
type backtestRunner interface {
	Run(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) (types.PortfolioState, error)
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical bars through a strategy bundle and write run artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "strategy", Required: true, Usage: "Registered strategy bundle name"},
			&cli.StringFlag{Name: "engine", Value: "single", Usage: "Engine kind: single (signal-driven) or rebalancing (target-weight)"},
			&cli.StringFlag{Name: "symbol", Required: true, Usage: "Ticker symbol to trade"},
			&cli.TimestampFlag{Name: "start", Required: true, Config: cli.TimestampConfig{Layouts: []string{"2006-01-02"}}},
			&cli.TimestampFlag{Name: "end", Required: true, Config: cli.TimestampConfig{Layouts: []string{"2006-01-02"}}},
			&cli.StringFlag{Name: "provider", Value: "binance", Usage: "Market data provider: binance, polygon"},
			&cli.StringFlag{Name: "out", Value: "runs/backtest", Usage: "Directory to write run artifacts and state to"},
			&cli.StringFlag{Name: "policy-config", Usage: "Optional YAML file with policy.Overrides"},
			&cli.FloatFlag{Name: "start-equity", Value: 100000, Usage: "Starting cash for the run"},
			&cli.IntFlag{Name: "reorder-window-seconds", Value: 0, Usage: "Bar normalizer: seconds an out-of-order bar may be buffered before rejection"},
			&cli.StringFlag{Name: "reject-on-gap", Value: string(normalizer.RejectOnGapNever), Usage: "Bar normalizer gap policy: never or strict"},
			&cli.StringFlag{Name: "dedup-winner", Value: string(normalizer.DedupWinnerLast), Usage: "Bar normalizer dedup policy: last or first"},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer log.Sync()

	strategyName := cmd.String("strategy")
	engineKind := cmd.String("engine")
	symbol := cmd.String("symbol")
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")
	outDir := cmd.String("out")

	overrides, err := loadPolicyOverrides(cmd.String("policy-config"))
	if err != nil {
		return err
	}

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

	clock := &barClock{ts: start}
	clockedSource := newClockFeedSource(normalized, clock)

	startEquity := decimal.NewFromFloat(cmd.Float("start-equity"))

	var eng backtestRunner

	switch engineKind {
	case "rebalancing":
		bundle, err := strategy.ResolveRebalancing(strategyName)
		if err != nil {
			return err
		}

		policies := policy.Merge(policy.Default(), firstNonNil(overrides, bundle.Overrides))
		simBroker := broker.NewSimulated(policies.Cost, clock)
		pricedSource := broker.NewPriceFeedSource(clockedSource, simBroker)

		instance := bundle.New()
		instance.AttachPorts(strategy.Env{Clock: clock, Source: pricedSource})

		eng = engine.NewRebalancing(instance, pricedSource, simBroker, clock, policies, startEquity, writer)
	default:
		bundle, err := strategy.Resolve(strategyName)
		if err != nil {
			return err
		}

		policies := policy.Merge(policy.Default(), firstNonNil(overrides, bundle.Overrides))
		simBroker := broker.NewSimulated(policies.Cost, clock)
		pricedSource := broker.NewPriceFeedSource(clockedSource, simBroker)

		rt := goruntime.New()
		if err := rt.Load(bundle, strategy.Env{Clock: clock, Source: pricedSource}); err != nil {
			return fmt.Errorf("failed to load strategy bundle: %w", err)
		}

		eng = engine.NewSingleStrategy(rt, pricedSource, simBroker, clock, policies, startEquity, writer)
	}

	log.Sugar().Infow("starting backtest", "strategy", strategyName, "engine", engineKind, "symbol", symbol, "start", start, "end", end)

	portfolio, runErr := eng.Run(ctx, symbol, start, end, types.Timeframe1m)

	if err := writeSummary(outDir, portfolio); err != nil {
		log.Sugar().Warnw("failed to write run summary", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("backtest run failed: %w", runErr)
	}

	if store, storeErr := duckdbstore.New(filepath.Join(outDir, "state.duckdb")); storeErr == nil {
		defer store.Close()

		if err := store.SavePortfolioState(ctx, portfolio); err != nil {
			log.Sugar().Warnw("failed to persist final portfolio state", "error", err)
		}
	}

	log.Sugar().Infow("backtest complete", "final_equity", portfolio.Equity.String())

	return nil
}

// firstNonNil prefers an operator-supplied policy override file over a
// strategy bundle's own declared overrides.
func firstNonNil(operator, bundle *policy.Overrides) *policy.Overrides {
	if operator != nil {
		return operator
	}

	return bundle
}

func writeSummary(outDir string, portfolio types.PortfolioState) error {
	raw, err := json.MarshalIndent(portfolio, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(outDir, "summary.json"), raw, 0o644)
}
