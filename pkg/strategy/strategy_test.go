package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type fakeStrategy struct{}

func (fakeStrategy) AttachPorts(Env)                          {}
func (fakeStrategy) OnBar(types.Bar) ([]types.Signal, error)  { return nil, nil }
func (fakeStrategy) OnFill(types.Fill) error                  { return nil }
func (fakeStrategy) Finalize() error                          { return nil }

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) validBundle() Bundle {
	return Bundle{
		Meta: Meta{
			Name:           "test-strategy",
			Universe:       []string{"AAPL"},
			Timeframe:      types.Timeframe1m,
			RequiredFields: []string{"fast_period"},
		},
		New: func() Strategy { return fakeStrategy{} },
	}
}

func (suite *StrategyTestSuite) TestRegisterAndResolve() {
	Register("test-strategy-resolve", func() Bundle { return suite.validBundle() })

	bundle, err := Resolve("test-strategy-resolve")
	require.NoError(suite.T(), err)
	suite.Equal("test-strategy", bundle.Meta.Name)
}

func (suite *StrategyTestSuite) TestResolveUnregistered() {
	_, err := Resolve("does-not-exist")
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestRegisterDuplicatePanics() {
	Register("test-strategy-dup", func() Bundle { return suite.validBundle() })
	suite.Panics(func() {
		Register("test-strategy-dup", func() Bundle { return suite.validBundle() })
	})
}

func (suite *StrategyTestSuite) TestValidateEmptyUniverse() {
	bundle := suite.validBundle()
	bundle.Meta.Universe = nil
	suite.Error(Validate(bundle))
}

func (suite *StrategyTestSuite) TestValidateEmptyRequiredFields() {
	bundle := suite.validBundle()
	bundle.Meta.RequiredFields = nil
	suite.Error(Validate(bundle))
}

func (suite *StrategyTestSuite) TestValidateNilConstructor() {
	bundle := suite.validBundle()
	bundle.New = nil
	suite.Error(Validate(bundle))
}

func (suite *StrategyTestSuite) TestValidateOK() {
	require.NoError(suite.T(), Validate(suite.validBundle()))
}

func (suite *StrategyTestSuite) TestValidateImportsAllowsAllowlisted() {
	src := `package strategies

import (
	"math"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)
`
	suite.NoError(ValidateImports("ok.go", src))
}

func (suite *StrategyTestSuite) TestValidateImportsRejectsDenied() {
	src := `package strategies

import "os"
`
	suite.Error(ValidateImports("bad.go", src))
}

func (suite *StrategyTestSuite) TestValidateImportsRejectsUnsupported() {
	src := `package strategies

import "github.com/some/random/thirdparty"
`
	suite.Error(ValidateImports("unsupported.go", src))
}
