package provider

import (
	"context"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"
)

type BinanceClientTestSuite struct {
	suite.Suite
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) TestNewBinanceClient() {
	client, err := NewBinanceClient()
	suite.NoError(err)
	suite.NotNil(client)

	_, ok := client.(*BinanceClient)
	suite.True(ok)
}

func (suite *BinanceClientTestSuite) TestDownloadWithoutWriter() {
	client, err := NewBinanceClient()
	suite.Require().NoError(err)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	_, err = client.Download(context.Background(), "BTCUSDT", startDate, endDate, 1, models.Minute, func(current, total float64, message string) {})
	suite.Error(err)
	suite.Contains(err.Error(), "writer is not configured")
}

func (suite *BinanceClientTestSuite) TestConvertTimespanToBinanceInterval() {
	tests := []struct {
		name       string
		timespan   models.Timespan
		multiplier int
		want       string
		wantErr    bool
	}{
		{"1 minute", models.Minute, 1, "1m", false},
		{"5 minutes", models.Minute, 5, "5m", false},
		{"1 hour", models.Hour, 1, "1h", false},
		{"1 day", models.Day, 1, "1d", false},
		{"1 week", models.Week, 1, "1w", false},
		{"2 weeks unsupported", models.Week, 2, "", true},
		{"1 month", models.Month, 1, "1M", false},
		{"3 months unsupported", models.Month, 3, "", true},
		{"quarter unsupported", models.Quarter, 1, "", true},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			got, err := convertTimespanToBinanceInterval(tt.timespan, tt.multiplier)
			if tt.wantErr {
				suite.Error(err)
			} else {
				suite.NoError(err)
				suite.Equal(tt.want, got)
			}
		})
	}
}

func (suite *BinanceClientTestSuite) TestKlineToBar() {
	//nolint:exhaustruct // only the fields the converter reads are set
	k := &binance.Kline{
		OpenTime:  1704067200000,
		CloseTime: 1704067259999,
		Open:      "42000.50",
		High:      "42500.00",
		Low:       "41800.00",
		Close:     "42300.00",
		Volume:    "1000.5",
	}

	bar, err := klineToBar("BTCUSDT", k)
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", bar.Symbol)
	suite.Equal(time.UnixMilli(1704067259999).UTC(), bar.Ts)
	suite.True(bar.IsClosed)

	closeVal, _ := bar.Close.Float64()
	suite.InDelta(42300.00, closeVal, 0.01)
}

func (suite *BinanceClientTestSuite) TestKlineToBarInvalidPrice() {
	//nolint:exhaustruct // only the fields the converter reads are set
	k := &binance.Kline{Open: "not-a-number"}

	_, err := klineToBar("BTCUSDT", k)
	suite.Error(err)
}

func (suite *BinanceClientTestSuite) TestIsValidBinanceInterval() {
	suite.True(isValidBinanceInterval("1m"))
	suite.True(isValidBinanceInterval("1M"))
	suite.False(isValidBinanceInterval("2m"))
	suite.False(isValidBinanceInterval(""))
}

func (suite *BinanceClientTestSuite) TestStreamRejectsEmptySymbols() {
	client, err := NewBinanceClient()
	suite.Require().NoError(err)

	var gotErr bool

	for _, err := range client.Stream(context.Background(), nil, "1m") {
		if err != nil {
			gotErr = true
		}
	}

	suite.True(gotErr)
}

func (suite *BinanceClientTestSuite) TestStreamRejectsInvalidInterval() {
	client, err := NewBinanceClient()
	suite.Require().NoError(err)

	var gotErr bool

	for _, err := range client.Stream(context.Background(), []string{"BTCUSDT"}, "2m") {
		if err != nil {
			gotErr = true
		}
	}

	suite.True(gotErr)
}
