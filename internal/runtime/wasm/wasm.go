// Package wasm hosts a strategy bundle compiled to WebAssembly and
// isolated inside a wazero sandbox. Data crosses the host/guest
// boundary as JSON through guest-exported malloc/free, the same shape
// of ABI the reference plugin host used for its RPC bridge, but called
// directly instead of through generated protobuf stubs.
package wasm

import (
	"context"
	"encoding/json"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/strategy"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// APIVersion is the ABI contract version the host requires of a guest
// module. A guest reporting a different version fails Load rather than
// risk misinterpreting its exported functions' memory layout.
const APIVersion uint64 = 1

// Runtime hosts one WASM strategy module. It implements
// runtime.StrategyRuntime.
type Runtime struct {
	rt     wazero.Runtime
	mod    api.Module
	malloc api.Function
	free   api.Function
	onBar  api.Function
	onFill api.Function
	final  api.Function
}

// New compiles and instantiates the module in wasmBytes, with WASI
// preview1 as its only host module, so Load has nothing left to do;
// each Runtime hosts one instance and Finalize closes it.
func New(ctx context.Context, wasmBytes []byte) (*Runtime, error) {
	rt := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStrategyLoad, "failed to instantiate WASI", err)
	}

	code, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStrategyLoad, "failed to compile strategy module", err)
	}

	mod, err := rt.InstantiateModule(ctx, code, wazero.NewModuleConfig())
	if err != nil {
		rt.Close(ctx)
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStrategyLoad, "failed to instantiate strategy module", err)
	}

	required := map[string]*api.Function{
		"malloc":              nil,
		"free":                nil,
		"argo_strategy_on_bar": nil,
		"argo_strategy_on_fill": nil,
		"argo_strategy_finalize": nil,
	}

	for name := range required {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			rt.Close(ctx)
			return nil, coreerrors.Newf(coreerrors.ErrCodeStrategyLoad, "strategy module does not export %s", name)
		}
	}

	apiVersionFn := mod.ExportedFunction("argo_strategy_api_version")
	if apiVersionFn != nil {
		results, err := apiVersionFn.Call(ctx)
		if err == nil && len(results) == 1 && results[0] != APIVersion {
			rt.Close(ctx)
			return nil, coreerrors.Newf(coreerrors.ErrCodeVersionMismatch,
				"strategy module ABI version %d does not match host version %d", results[0], APIVersion)
		}
	}

	return &Runtime{
		rt:     rt,
		mod:    mod,
		malloc: mod.ExportedFunction("malloc"),
		free:   mod.ExportedFunction("free"),
		onBar:  mod.ExportedFunction("argo_strategy_on_bar"),
		onFill: mod.ExportedFunction("argo_strategy_on_fill"),
		final:  mod.ExportedFunction("argo_strategy_finalize"),
	}, nil
}

// Load is a no-op for the WASM runtime: the module was already
// compiled and instantiated by New, and a guest strategy has no
// AttachPorts hook since it cannot reach host ports directly.
func (r *Runtime) Load(strategy.Bundle, strategy.Env) error {
	return nil
}

// OnBar marshals bar to JSON, copies it into guest memory, calls the
// guest's on_bar export, and unmarshals the returned signals from the
// guest's response buffer.
func (r *Runtime) OnBar(bar types.Bar) ([]types.Signal, error) {
	ctx := context.Background()

	payload, err := json.Marshal(bar)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStrategySandbox, "failed to marshal bar for guest call", err)
	}

	ptr, size, err := r.writeGuestBuffer(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer r.freeGuestBuffer(ctx, ptr)

	results, err := r.onBar.Call(ctx, ptr, size)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "strategy guest call on_bar failed", err)
	}

	return r.readSignals(ctx, results)
}

// OnFill marshals fill to JSON and invokes the guest's on_fill export.
func (r *Runtime) OnFill(fill types.Fill) error {
	ctx := context.Background()

	payload, err := json.Marshal(fill)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStrategySandbox, "failed to marshal fill for guest call", err)
	}

	ptr, size, err := r.writeGuestBuffer(ctx, payload)
	if err != nil {
		return err
	}
	defer r.freeGuestBuffer(ctx, ptr)

	if _, err := r.onFill.Call(ctx, ptr, size); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "strategy guest call on_fill failed", err)
	}

	return nil
}

// Finalize invokes the guest's finalize export and tears down the
// runtime; the WASM instance is single-use per run.
func (r *Runtime) Finalize() error {
	ctx := context.Background()

	_, callErr := r.final.Call(ctx)

	if err := r.rt.Close(ctx); err != nil && callErr == nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStrategySandbox, "failed to close strategy runtime", err)
	}

	if callErr != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeExternalTransient, "strategy guest call finalize failed", callErr)
	}

	return nil
}

func (r *Runtime) writeGuestBuffer(ctx context.Context, payload []byte) (uint64, uint64, error) {
	size := uint64(len(payload))

	results, err := r.malloc.Call(ctx, size)
	if err != nil {
		return 0, 0, coreerrors.Wrap(coreerrors.ErrCodeStrategySandbox, "guest malloc failed", err)
	}

	ptr := results[0]
	if !r.mod.Memory().Write(uint32(ptr), payload) {
		return 0, 0, coreerrors.New(coreerrors.ErrCodeStrategySandbox, "failed to write to guest memory")
	}

	return ptr, size, nil
}

func (r *Runtime) freeGuestBuffer(ctx context.Context, ptr uint64) {
	_, _ = r.free.Call(ctx, ptr)
}

// readSignals decodes the packed (ptr<<32|len) result the guest
// returns, matching the reference host's pointer-packing convention for
// variable-length return buffers.
func (r *Runtime) readSignals(ctx context.Context, results []uint64) ([]types.Signal, error) {
	if len(results) != 1 {
		return nil, coreerrors.New(coreerrors.ErrCodeStrategySandbox, "guest on_bar returned unexpected result count")
	}

	packed := results[0]
	ptr := uint32(packed >> 32)
	size := uint32(packed)

	if size == 0 {
		return nil, nil
	}

	buf, ok := r.mod.Memory().Read(ptr, size)
	if !ok {
		return nil, coreerrors.New(coreerrors.ErrCodeStrategySandbox, "failed to read guest response memory")
	}

	var signals []types.Signal
	if err := json.Unmarshal(buf, &signals); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeStrategySandbox, "failed to unmarshal guest signals", err)
	}

	r.freeGuestBuffer(ctx, uint64(ptr))

	return signals, nil
}

// packPointer mirrors the guest-side convention tests exercise against:
// a 64-bit result packs a 32-bit pointer in the high word and a 32-bit
// length in the low word.
func packPointer(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}
