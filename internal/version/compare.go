package version

import (
	"github.com/Masterminds/semver/v3"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

// CheckCompatibility enforces the strategy bundle's declared
// core_version_range against the running core's version. A core
// version of "main", or an empty bundle constraint, skips the check,
// matching development builds that carry no meaningful semantic
// version. Otherwise the core version must
// satisfy the bundle's declared constraint (e.g. "^0.4.0", ">=0.3,<0.5").
func CheckCompatibility(coreVersion, bundleConstraint string) error {
	if coreVersion == "main" || bundleConstraint == "" {
		return nil
	}

	v, err := semver.NewVersion(coreVersion)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeVersionMismatch, "core version is not valid semver", err)
	}

	constraint, err := semver.NewConstraint(bundleConstraint)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeVersionMismatch, "bundle core_version_range is not a valid constraint", err)
	}

	if !constraint.Check(v) {
		return coreerrors.Newf(coreerrors.ErrCodeVersionMismatch,
			"core version %s does not satisfy bundle's required range %s", coreVersion, bundleConstraint)
	}

	return nil
}
