package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-trading/pkg/marketdata"
)

// downloadCommand backfills historical bars from a provider into local
// parquet storage, ahead of a backtest run.
func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars from a provider into local parquet storage",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Required: true, Usage: "Provider name; see `argocore schema list`"},
			&cli.StringFlag{Name: "config", Required: true, Usage: "Path to a JSON file matching the provider's download config schema (see `argocore schema download`)"},
			&cli.StringFlag{Name: "out", Value: "data", Usage: "Directory to write downloaded parquet files to"},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	providerName := cmd.String("provider")
	outDir := cmd.String("out")

	raw, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read download config: %w", err)
	}

	parsed, err := marketdata.ParseDownloadConfig(providerName, string(raw))
	if err != nil {
		return err
	}

	var (
		clientConfig marketdata.ClientConfig
		params       marketdata.DownloadParams
	)

	switch cfg := parsed.(type) {
	case *marketdata.PolygonDownloadConfig:
		clientConfig = cfg.ToClientConfig(outDir)

		params, err = cfg.ToDownloadParams()
	case *marketdata.BinanceDownloadConfig:
		clientConfig = cfg.ToClientConfig(outDir)

		params, err = cfg.ToDownloadParams()
	default:
		return fmt.Errorf("unsupported provider: %s", providerName)
	}

	if err != nil {
		return fmt.Errorf("failed to build download parameters: %w", err)
	}

	client, err := marketdata.NewClient(clientConfig, nil)
	if err != nil {
		return fmt.Errorf("failed to construct market data client: %w", err)
	}

	fmt.Printf("downloading %s %s from %s...\n", clientConfig.ProviderType, params.Ticker, providerName)

	if err := client.Download(ctx, params); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Println("download complete")

	return nil
}
