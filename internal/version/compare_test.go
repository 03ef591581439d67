package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name             string
		coreVersion      string
		bundleConstraint string
		expectError      bool
		errorContains    string
	}{
		{
			name:             "exact match",
			coreVersion:      "1.2.0",
			bundleConstraint: "1.2.0",
			expectError:      false,
		},
		{
			name:             "caret range within minor",
			coreVersion:      "1.2.5",
			bundleConstraint: "^1.2.0",
			expectError:      false,
		},
		{
			name:             "caret range excludes next major",
			coreVersion:      "2.0.0",
			bundleConstraint: "^1.2.0",
			expectError:      true,
			errorContains:    "does not satisfy",
		},
		{
			name:             "explicit range satisfied",
			coreVersion:      "1.4.3",
			bundleConstraint: ">=1.3.0,<1.5.0",
			expectError:      false,
		},
		{
			name:             "explicit range violated",
			coreVersion:      "1.6.0",
			bundleConstraint: ">=1.3.0,<1.5.0",
			expectError:      true,
			errorContains:    "does not satisfy",
		},
		{
			name:             "core is main bypasses check",
			coreVersion:      "main",
			bundleConstraint: "^9.9.9",
			expectError:      false,
		},
		{
			name:             "empty bundle constraint bypasses check",
			coreVersion:      "1.2.0",
			bundleConstraint: "",
			expectError:      false,
		},
		{
			name:             "v prefix on core version",
			coreVersion:      "v1.2.0",
			bundleConstraint: "^1.0.0",
			expectError:      false,
		},
		{
			name:             "invalid core version",
			coreVersion:      "not-a-version",
			bundleConstraint: "^1.0.0",
			expectError:      true,
			errorContains:    "core version is not valid semver",
		},
		{
			name:             "invalid bundle constraint",
			coreVersion:      "1.2.0",
			bundleConstraint: "not-a-constraint!!",
			expectError:      true,
			errorContains:    "core_version_range is not a valid constraint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompatibility(tt.coreVersion, tt.bundleConstraint)

			if tt.expectError {
				require.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
