// Package provider adapts third-party market data APIs (Binance, Polygon)
// into the bar shapes the rest of the core understands: bulk historical
// downloads for building a dataset file, and a streaming iterator for
// live bars.
package provider

import (
	"context"
	"iter"
	"time"

	"github.com/polygon-io/client-go/rest/models"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/marketdata/writer"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// ProviderType identifies a supported market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnDownloadProgress reports download progress as (current, total, message).
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider is a market data source that can bulk-download a historical
// range to a writer, fetch historical 1m bars directly, and stream live
// bars.
type Provider interface {
	// ConfigWriter configures the writer that Download persists bars to.
	ConfigWriter(w writer.BarWriter)
	// Download downloads the data for the given ticker and date range,
	// writing every bar through the configured writer and returning the
	// writer's output path once finalized.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error)
	// Bars yields historical closed 1m bars directly, without persisting
	// them, for feeding an engine's BarDataSource port.
	Bars(ctx context.Context, ticker string, startDate time.Time, endDate time.Time) iter.Seq2[types.Bar, error]
	// Stream yields realtime closed bars as they finalize. Cancel the
	// context to stop streaming.
	Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error]
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, coreerrors.New(coreerrors.ErrCodeInvalidConfiguration, "polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey)
	default:
		return nil, coreerrors.Newf(coreerrors.ErrCodeInvalidConfiguration, "unsupported market data provider: %s", providerType)
	}
}
