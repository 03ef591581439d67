package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPackPointer covers the pointer/length packing convention the
// guest ABI uses for variable-length return buffers. Exercising the
// full Runtime requires a compiled guest module, which is out of scope
// for a unit test; the packing convention itself is plain arithmetic
// and is safe to pin down here.
func TestPackPointer(t *testing.T) {
	packed := packPointer(0x1000, 42)
	assert.Equal(t, uint32(0x1000), uint32(packed>>32))
	assert.Equal(t, uint32(42), uint32(packed))
}

func TestPackPointerZero(t *testing.T) {
	packed := packPointer(0, 0)
	assert.Equal(t, uint64(0), packed)
}
