package safety

import (
	"testing"

	"github.com/stretchr/testify/suite"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

type GateTestSuite struct {
	suite.Suite
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func (suite *GateTestSuite) SetupTest() {
	suite.T().Setenv(envLiveAPI, "")
	suite.T().Setenv(envConfirmLive, "")
}

func (suite *GateTestSuite) TestCheckPassesWithBothAsserted() {
	suite.T().Setenv(envLiveAPI, "1")
	suite.T().Setenv(envConfirmLive, "YES")

	result, err := Check(ActionFail)
	suite.NoError(err)
	suite.True(result.Allowed)
}

func (suite *GateTestSuite) TestCheckFailsHardByDefault() {
	_, err := Check(ActionFail)
	suite.Error(err)
	suite.True(coreerrors.HasCode(err, coreerrors.ErrCodeLiveSafetyGate))
}

func (suite *GateTestSuite) TestCheckDowngradesWhenRequested() {
	result, err := Check(ActionDowngrade)
	suite.NoError(err)
	suite.False(result.Allowed)
	suite.True(result.Downgraded)
	suite.NotEmpty(result.Warning)
}

func (suite *GateTestSuite) TestCheckFailsWithOnlyOneAssertion() {
	suite.T().Setenv(envLiveAPI, "1")

	_, err := Check(ActionFail)
	suite.Error(err)
}
