package provider

import (
	"context"
	"fmt"
	"iter"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/marketdata/writer"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// BinanceClient adapts the Binance spot REST and websocket APIs to Provider.
type BinanceClient struct {
	client *binance.Client
	writer writer.BarWriter
}

// NewBinanceClient creates a client against Binance's public market data
// API. No API key is required for klines and kline streams.
func NewBinanceClient() (Provider, error) {
	return &BinanceClient{client: binance.NewClient("", "")}, nil
}

func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download paginates Binance klines across the requested range, writing
// each page through the configured writer, and finalizes once done.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error) {
	interval, err := convertTimespanToBinanceInterval(timespan, multiplier)
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeInvalidParameter, "failed to convert timespan to Binance interval", err)
	}

	if c.writer == nil {
		return "", coreerrors.New(coreerrors.ErrCodeInvalidConfiguration, "writer is not configured")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to initialize writer", err)
	}

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	current := startMillis

	for {
		klines, fetchErr := c.client.NewKlinesService().Symbol(ticker).Interval(interval).StartTime(current).EndTime(endMillis).Do(ctx)
		if fetchErr != nil {
			_, _ = c.writer.Finalize()
			return "", coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "failed to fetch klines from Binance", fetchErr)
		}

		onProgress(float64(current-startMillis), float64(endMillis-startMillis), fmt.Sprintf("downloading %s klines from Binance", ticker))

		for _, k := range klines {
			bar, convErr := klineToBar(ticker, k)
			if convErr != nil {
				_, _ = c.writer.Finalize()
				return "", convErr
			}

			if writeErr := c.writer.Write(bar); writeErr != nil {
				_, _ = c.writer.Finalize()
				return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to write bar", writeErr)
			}
		}

		if len(klines) < 500 {
			break
		}

		current = klines[len(klines)-1].CloseTime + 1
		if current >= endMillis {
			break
		}
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to finalize writer", err)
	}

	return outputPath, nil
}

// Bars fetches historical 1m klines directly, without a writer, for
// feeding an engine's BarDataSource port.
func (c *BinanceClient) Bars(ctx context.Context, ticker string, startDate time.Time, endDate time.Time) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		startMillis := startDate.UnixMilli()
		endMillis := endDate.UnixMilli()
		current := startMillis

		for {
			klines, err := c.client.NewKlinesService().Symbol(ticker).Interval("1m").StartTime(current).EndTime(endMillis).Do(ctx)
			if err != nil {
				yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "failed to fetch klines from Binance", err))
				return
			}

			for _, k := range klines {
				bar, convErr := klineToBar(ticker, k)
				if !yield(bar, convErr) {
					return
				}
			}

			if len(klines) < 500 {
				return
			}

			current = klines[len(klines)-1].CloseTime + 1
			if current >= endMillis {
				return
			}
		}
	}
}

// Stream opens one kline websocket per symbol and yields a bar each time
// a candle finalizes. Non-final klines (IsFinal=false) are dropped: the
// core only trades on closed bars.
func (c *BinanceClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		if len(symbols) == 0 {
			yield(types.Bar{}, coreerrors.New(coreerrors.ErrCodeInvalidParameter, "no symbols provided"))
			return
		}

		if !isValidBinanceInterval(interval) {
			yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeInvalidParameter, "invalid interval: %s", interval))
			return
		}

		bars := make(chan types.Bar)
		errs := make(chan error, len(symbols)+1)
		stopCs := make([]chan struct{}, 0, len(symbols))

		handler := func(event *binance.WsKlineEvent) {
			if !event.Kline.IsFinal {
				return
			}

			bar, err := wsKlineEventToBar(event)
			if err != nil {
				select {
				case errs <- err:
				default:
				}

				return
			}

			select {
			case bars <- bar:
			case <-ctx.Done():
			}
		}

		errHandler := func(err error) {
			select {
			case errs <- coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "websocket error", err):
			default:
			}
		}

		for _, symbol := range symbols {
			_, stopC, err := binance.WsKlineServe(symbol, interval, handler, errHandler)
			if err != nil {
				yield(types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "failed to start websocket", err))
				return
			}

			stopCs = append(stopCs, stopC)
		}

		defer func() {
			for _, stopC := range stopCs {
				close(stopC)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case bar := <-bars:
				if !yield(bar, nil) {
					return
				}
			case err := <-errs:
				yield(types.Bar{}, err)
				return
			}
		}
	}
}

func klineToBar(ticker string, k *binance.Kline) (types.Bar, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid open price from Binance", err)
	}

	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid high price from Binance", err)
	}

	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid low price from Binance", err)
	}

	closePrice, err := decimal.NewFromString(k.Close)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid close price from Binance", err)
	}

	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid volume from Binance", err)
	}

	return types.Bar{
		Ts:        time.UnixMilli(k.CloseTime).UTC(),
		Symbol:    ticker,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Timeframe: types.Timeframe1m,
		IsClosed:  true,
	}, nil
}

func wsKlineEventToBar(event *binance.WsKlineEvent) (types.Bar, error) {
	open, err := decimal.NewFromString(event.Kline.Open)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid open price from Binance stream", err)
	}

	high, err := decimal.NewFromString(event.Kline.High)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid high price from Binance stream", err)
	}

	low, err := decimal.NewFromString(event.Kline.Low)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid low price from Binance stream", err)
	}

	closePrice, err := decimal.NewFromString(event.Kline.Close)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid close price from Binance stream", err)
	}

	volume, err := decimal.NewFromString(event.Kline.Volume)
	if err != nil {
		return types.Bar{}, coreerrors.Wrap(coreerrors.ErrCodeBarSchema, "invalid volume from Binance stream", err)
	}

	return types.Bar{
		Ts:        time.UnixMilli(event.Kline.EndTime).UTC(),
		Symbol:    event.Symbol,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Timeframe: types.Timeframe1m,
		IsClosed:  true,
	}, nil
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", coreerrors.Newf(coreerrors.ErrCodeInvalidParameter, "unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", coreerrors.Newf(coreerrors.ErrCodeInvalidParameter, "unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", coreerrors.Newf(coreerrors.ErrCodeInvalidParameter, "unsupported timespan for Binance: %s", timespan)
	}
}

func isValidBinanceInterval(interval string) bool {
	switch interval {
	case "1s", "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M":
		return true
	default:
		return false
	}
}
