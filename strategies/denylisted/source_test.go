package denylisted

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-trading/pkg/strategy"
)

type SourceTestSuite struct {
	suite.Suite
}

func TestSourceSuite(t *testing.T) {
	suite.Run(t, new(SourceTestSuite))
}

func (suite *SourceTestSuite) TestSandboxRejectsDeniedImports() {
	err := strategy.ValidateImports("denylisted.go", Source)
	suite.Error(err)
	suite.Contains(err.Error(), "net/http (line 4)")
	suite.Contains(err.Error(), "os/exec (line 5)")
}
