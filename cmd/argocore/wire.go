package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-trading/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-trading/pkg/policy"

	// Blank-imported so every bundled example strategy registers itself
	// with pkg/strategy before a run resolves one by name.
	_ "github.com/rxtech-lab/argo-trading/strategies/equalweight"
	_ "github.com/rxtech-lab/argo-trading/strategies/movingaveragecrossover"
)

// buildProvider constructs the configured market data provider. Polygon
// requires POLYGON_API_KEY in the environment; Binance's public market
// data endpoints need no credential.
func buildProvider(providerName string) (provider.Provider, error) {
	switch provider.ProviderType(providerName) {
	case provider.ProviderPolygon:
		return provider.NewMarketDataProvider(provider.ProviderPolygon, os.Getenv("POLYGON_API_KEY"))
	case provider.ProviderBinance:
		return provider.NewMarketDataProvider(provider.ProviderBinance, nil)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerName)
	}
}

// loadPolicyOverrides reads a YAML file shaped like policy.Overrides. An
// empty path returns nil, letting the caller fall back to a strategy
// bundle's own declared overrides.
func loadPolicyOverrides(path string) (*policy.Overrides, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy overrides file: %w", err)
	}

	var overrides policy.Overrides
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse policy overrides file: %w", err)
	}

	return &overrides, nil
}

// systemClock satisfies ports.Clock with the wall clock, for paper and
// live runs; backtests use the bar timestamp instead via barClock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// barClock reports the timestamp of the most recently processed bar,
// giving a backtest engine a deterministic notion of "now" independent
// of wall-clock time.
type barClock struct {
	ts time.Time
}

func (c *barClock) Now() time.Time { return c.ts }

func (c *barClock) Advance(ts time.Time) { c.ts = ts }
