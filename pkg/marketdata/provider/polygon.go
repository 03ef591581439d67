package provider

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	polygonws "github.com/polygon-io/client-go/websocket"
	wsmodels "github.com/polygon-io/client-go/websocket/models"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/marketdata/writer"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// PolygonClient adapts the Polygon.io REST aggregates and websocket APIs
// to Provider.
type PolygonClient struct {
	client *polygon.Client
	apiKey string
	writer writer.BarWriter
}

// NewPolygonClient creates a client authenticated with the given API key.
func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidConfiguration, "apiKey is required")
	}

	return &PolygonClient{client: polygon.New(apiKey), apiKey: apiKey}, nil
}

func (c *PolygonClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error) {
	if c.writer == nil {
		return "", coreerrors.New(coreerrors.ErrCodeInvalidConfiguration, "no writer configured for PolygonClient, call ConfigWriter first")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to initialize writer", err)
	}

	defer func() {
		if cerr := c.writer.Close(); cerr != nil {
			if err == nil {
				err = coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "error closing writer", cerr)
			} else {
				log.Printf("error closing writer after another error: %v", cerr)
			}
		}
	}()

	totalIterations := int(endDate.Sub(startDate).Hours()/24) + 1
	bar := progressbar.NewOptions(totalIterations, progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", ticker)), progressbar.OptionShowCount())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	aggIter := c.client.ListAggs(ctx, params)
	processedCount := 0

	for aggIter.Next() {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		onProgress(float64(processedCount), float64(totalIterations), fmt.Sprintf("downloading %s", ticker))

		agg := aggIter.Item()

		b, convErr := aggToBar(ticker, &agg)
		if convErr != nil {
			return "", convErr
		}

		if err = c.writer.Write(b); err != nil {
			return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to write data", err)
		}

		processedCount++
		if processedCount%1000 == 0 {
			currentTime := time.Time(agg.Timestamp)
			daysElapsed := int(currentTime.Sub(startDate).Hours() / 24)
			bar.Set(daysElapsed) //nolint:errcheck
		}
	}

	if aggIter.Err() != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "error iterating polygon aggregates", aggIter.Err())
	}

	bar.Finish() //nolint:errcheck
	log.Printf("finished downloading %d data points for %s", processedCount, ticker)

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to finalize writer", err)
	}

	return outputPath, nil
}

// Bars fetches historical 1m aggregates directly, without a writer.
func (c *PolygonClient) Bars(ctx context.Context, ticker string, startDate time.Time, endDate time.Time) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		//nolint:exhaustruct // third-party struct with many optional fields
		params := models.ListAggsParams{
			Ticker:     ticker,
			Multiplier: 1,
			Timespan:   models.Minute,
			From:       models.Millis(startDate),
			To:         models.Millis(endDate),
		}.WithLimit(50000)

		aggIter := c.client.ListAggs(ctx, params)

		for aggIter.Next() {
			agg := aggIter.Item()

			b, err := aggToBar(ticker, &agg)
			if !yield(b, err) {
				return
			}
		}

		if aggIter.Err() != nil {
			yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "error iterating polygon aggregates", aggIter.Err()))
		}
	}
}

// Stream connects to Polygon's stocks websocket and yields a bar for
// each per-minute aggregate event received for the requested symbols.
func (c *PolygonClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		if len(symbols) == 0 {
			yield(types.Bar{}, coreerrors.New(coreerrors.ErrCodeInvalidParameter, "no symbols provided"))
			return
		}

		topic, err := convertIntervalToPolygonTopic(interval)
		if err != nil {
			yield(types.Bar{}, err)
			return
		}

		client, err := polygonws.New(polygonws.Config{
			APIKey: c.apiKey,
			Feed:   polygonws.RealTime,
			Market: polygonws.Stocks,
		})
		if err != nil {
			yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "failed to connect", err))
			return
		}
		defer client.Close()

		if err := client.Connect(); err != nil {
			yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "failed to connect", err))
			return
		}

		if err := client.Subscribe(topic, symbols...); err != nil {
			yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "failed to subscribe", err))
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case out, ok := <-client.Output():
				if !ok {
					return
				}

				agg, ok := out.(wsmodels.EquityAgg)
				if !ok {
					continue
				}

				b, convErr := wsAggToBar(&agg)
				if !yield(b, convErr) {
					return
				}
			case err, ok := <-client.Error():
				if !ok {
					return
				}

				if !yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "websocket error", err)) {
					return
				}
			}
		}
	}
}

func aggToBar(ticker string, agg *models.Agg) (types.Bar, error) {
	return types.Bar{
		Ts:        time.Time(agg.Timestamp).UTC(),
		Symbol:    ticker,
		Open:      decimal.NewFromFloat(agg.Open),
		High:      decimal.NewFromFloat(agg.High),
		Low:       decimal.NewFromFloat(agg.Low),
		Close:     decimal.NewFromFloat(agg.Close),
		Volume:    decimal.NewFromFloat(agg.Volume),
		Timeframe: types.Timeframe1m,
		IsClosed:  true,
	}, nil
}

func wsAggToBar(agg *wsmodels.EquityAgg) (types.Bar, error) {
	return types.Bar{
		Ts:        time.UnixMilli(int64(agg.StartTimestamp)).UTC(),
		Symbol:    agg.Symbol,
		Open:      decimal.NewFromFloat(agg.Open),
		High:      decimal.NewFromFloat(agg.High),
		Low:       decimal.NewFromFloat(agg.Low),
		Close:     decimal.NewFromFloat(agg.Close),
		Volume:    decimal.NewFromFloat(agg.Volume),
		Timeframe: types.Timeframe1m,
		IsClosed:  true,
	}, nil
}

// convertIntervalToPolygonTopic maps a requested interval to a Polygon
// aggregates topic. Anything other than second-level defaults to minute
// aggregates, which is what the core trades on.
func convertIntervalToPolygonTopic(interval string) (polygonws.Topic, error) {
	switch interval {
	case "1s":
		return polygonws.StocksSecAggs, nil
	default:
		return polygonws.StocksMinAggs, nil
	}
}
