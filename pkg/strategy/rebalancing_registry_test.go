package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type fakeRebalancingStrategy struct{}

func (fakeRebalancingStrategy) AttachPorts(Env) {}

func (fakeRebalancingStrategy) TargetWeights(time.Time, types.PortfolioState) (types.TargetWeights, error) {
	return types.TargetWeights{}, nil
}

func (fakeRebalancingStrategy) Finalize() error { return nil }

type RebalancingRegistryTestSuite struct {
	suite.Suite
}

func TestRebalancingRegistrySuite(t *testing.T) {
	suite.Run(t, new(RebalancingRegistryTestSuite))
}

func (suite *RebalancingRegistryTestSuite) TestResolveUnregisteredFails() {
	_, err := ResolveRebalancing("does-not-exist")
	suite.Error(err)
}

func (suite *RebalancingRegistryTestSuite) TestRegisterAndResolve() {
	RegisterRebalancing("fake-rebalance-registry-test", func() RebalancingBundle {
		return RebalancingBundle{
			Meta: Meta{
				Name:           "fake-rebalance-registry-test",
				Universe:       []string{"BTCUSDT"},
				Timeframe:      types.Timeframe1m,
				RequiredFields: []string{"target"},
			},
			New: func() RebalancingStrategy { return fakeRebalancingStrategy{} },
		}
	})

	bundle, err := ResolveRebalancing("fake-rebalance-registry-test")
	suite.Require().NoError(err)
	suite.Equal("fake-rebalance-registry-test", bundle.Meta.Name)

	instance := bundle.New()
	weights, err := instance.TargetWeights(time.Now(), types.PortfolioState{})
	suite.NoError(err)
	suite.False(weights.Rebalance)
}

func (suite *RebalancingRegistryTestSuite) TestValidateRejectsEmptyUniverse() {
	err := ValidateRebalancing(RebalancingBundle{
		Meta: Meta{RequiredFields: []string{"x"}},
		New:  func() RebalancingStrategy { return fakeRebalancingStrategy{} },
	})
	suite.Error(err)
}

func (suite *RebalancingRegistryTestSuite) TestValidateRejectsMissingConstructor() {
	err := ValidateRebalancing(RebalancingBundle{
		Meta: Meta{Universe: []string{"BTCUSDT"}, RequiredFields: []string{"x"}},
	})
	suite.Error(err)
}
