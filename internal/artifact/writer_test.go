package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type WriterTestSuite struct {
	suite.Suite
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

func (suite *WriterTestSuite) writeRun(dir string) Manifest {
	w, err := New(dir)
	require.NoError(suite.T(), err)
	defer w.Close()

	ts := time.Date(2024, 1, 1, 9, 30, 0, 123456789, time.UTC)

	order := &types.OrderRecord{OrderID: "o1", Status: types.OrderStatusFilled}
	require.NoError(suite.T(), w.Write(types.ArtifactEvent{Type: types.ArtifactEventOrder, Ts: ts, Order: order}))

	fill := &types.Fill{FillID: "f1", OrderID: "o1"}
	require.NoError(suite.T(), w.Write(types.ArtifactEvent{Type: types.ArtifactEventFill, Ts: ts, Fill: fill}))

	require.NoError(suite.T(), w.WriteManifest())

	return w.Manifest()
}

func (suite *WriterTestSuite) TestWriteCreatesStreamFiles() {
	dir := suite.T().TempDir()
	suite.writeRun(dir)

	suite.FileExists(filepath.Join(dir, "orders.jsonl"))
	suite.FileExists(filepath.Join(dir, "fills.jsonl"))
	suite.FileExists(filepath.Join(dir, "manifest.json"))
}

func (suite *WriterTestSuite) TestTimestampTruncatedToMicrosecond() {
	dir := suite.T().TempDir()
	suite.writeRun(dir)

	data, err := os.ReadFile(filepath.Join(dir, "orders.jsonl"))
	require.NoError(suite.T(), err)

	var event types.ArtifactEvent
	require.NoError(suite.T(), json.Unmarshal(data[:len(data)-1], &event))
	suite.Equal(0, event.Ts.Nanosecond()%1000)
}

func (suite *WriterTestSuite) TestManifestDeterministicAcrossRuns() {
	dirA := suite.T().TempDir()
	dirB := suite.T().TempDir()

	manifestA := suite.writeRun(dirA)
	manifestB := suite.writeRun(dirB)

	suite.Equal(manifestA.Streams[types.ArtifactEventOrder].SHA256, manifestB.Streams[types.ArtifactEventOrder].SHA256)
	suite.Equal(manifestA.Streams[types.ArtifactEventFill].SHA256, manifestB.Streams[types.ArtifactEventFill].SHA256)
}

func (suite *WriterTestSuite) TestManifestCountsEvents() {
	dir := suite.T().TempDir()
	manifest := suite.writeRun(dir)

	suite.Equal(1, manifest.Streams[types.ArtifactEventOrder].EventCount)
	suite.Equal(1, manifest.Streams[types.ArtifactEventFill].EventCount)
	suite.Equal(0, manifest.Streams[types.ArtifactEventRisk].EventCount)
}

func (suite *WriterTestSuite) TestWriteUnknownStreamErrors() {
	dir := suite.T().TempDir()
	w, err := New(dir)
	require.NoError(suite.T(), err)
	defer w.Close()

	err = w.Write(types.ArtifactEvent{Type: types.ArtifactEventType("bogus")})
	suite.Error(err)
}
