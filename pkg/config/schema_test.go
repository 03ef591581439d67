package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type schemaTestConfig struct {
	Symbols []string `json:"symbols" jsonschema:"required"`
	MaxBars int      `json:"max_bars"`
}

type SchemaTestSuite struct {
	suite.Suite
}

func TestSchemaSuite(t *testing.T) {
	suite.Run(t, new(SchemaTestSuite))
}

func (suite *SchemaTestSuite) TestToJSONSchemaProducesValidJSON() {
	out, err := ToJSONSchema(schemaTestConfig{})
	require.NoError(suite.T(), err)
	suite.NotEmpty(out)

	var decoded map[string]any
	require.NoError(suite.T(), json.Unmarshal([]byte(out), &decoded))
	suite.Contains(decoded, "properties")
}

func (suite *SchemaTestSuite) TestToJSONSchemaIsNotReferenced() {
	out, err := ToJSONSchema(schemaTestConfig{})
	require.NoError(suite.T(), err)
	suite.NotContains(out, "$ref")
}
