package provider

import (
	"context"
	"testing"
	"time"

	wsmodels "github.com/polygon-io/client-go/websocket/models"
	"github.com/stretchr/testify/suite"
)

type PolygonStreamTestSuite struct {
	suite.Suite
}

func TestPolygonStreamSuite(t *testing.T) {
	suite.Run(t, new(PolygonStreamTestSuite))
}

func (suite *PolygonStreamTestSuite) TestStreamEmptySymbols() {
	client, err := NewPolygonClient("test-api-key")
	suite.Require().NoError(err)

	ctx := context.Background()

	var gotError bool

	for _, err := range client.Stream(ctx, []string{}, "1m") {
		if err != nil {
			gotError = true
			break
		}
	}

	suite.True(gotError)
}

func (suite *PolygonStreamTestSuite) TestWsAggToBarSingleSymbol() {
	//nolint:exhaustruct // only the fields the converter reads are set
	agg := &wsmodels.EquityAgg{
		Symbol:         "AAPL",
		Open:           150.00,
		High:           152.00,
		Low:            149.50,
		Close:          151.50,
		Volume:         1000000,
		StartTimestamp: 1704067200000,
	}

	bar, err := wsAggToBar(agg)
	suite.Require().NoError(err)
	suite.Equal("AAPL", bar.Symbol)
	suite.Equal(time.UnixMilli(1704067200000).UTC(), bar.Ts)

	openVal, _ := bar.Open.Float64()
	suite.InDelta(150.00, openVal, 0.01)

	closeVal, _ := bar.Close.Float64()
	suite.InDelta(151.50, closeVal, 0.01)
}
