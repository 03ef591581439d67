package main

import coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"

// exitCode maps an error's coreerrors.ErrorCode category to the process
// exit code spec §6 mandates for that class. Everything outside the
// input/load/safety-gate ranges is a runtime error (5); a nil error has
// no meaningful exit code and is never passed here.
func exitCode(err error) int {
	code := coreerrors.GetCode(err)

	switch {
	case code >= 100 && code < 200:
		return 2 // invalid input: bar schema/ordering, strategy validation
	case code >= 200 && code < 300:
		return 3 // strategy load failure
	case code >= 700 && code < 800:
		return 4 // live safety-gate failure
	default:
		return 5 // runtime error
	}
}
