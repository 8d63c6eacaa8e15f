package engine

import (
	"context"
	"crypto/rand"
	"io"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	xmrkeys "github.com/wippyai/xmr-keys"
	"github.com/wippyai/xmr-keys/errors"
)

var _ xmrkeys.Engine = (*WazeroEngine)(nil)

// Config holds configuration for engine creation
type Config struct {
	// Rand feeds the guest's WASI random_get, which seeds new wallets.
	// nil means crypto/rand.Reader. wazero's own default is deterministic
	// and must never back key generation.
	Rand io.Reader

	// Stdout and Stderr receive the guest's WASI output. nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Name is the guest module name. Empty means anonymous.
	Name string

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// WazeroEngine hosts the key engine WASM module.
//
// WazeroEngine is NOT thread-safe. Every method runs guest code on the
// same instance, so callers must serialize access; the wallet package does
// this with its task queue.
type WazeroEngine struct {
	runtime   wazero.Runtime
	module    api.Module
	memory    api.Memory
	allocFn   api.Function
	freeFn    api.Function
	funcs     map[string]api.Function
	pending   *pendingTable
	stackBuf  []uint64
	allocArgs int
	freeArgs  int
	closed    atomic.Bool
}

// New compiles and instantiates the engine module.
func New(ctx context.Context, wasm []byte, cfg *Config) (*WazeroEngine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	e := &WazeroEngine{
		runtime:  runtime,
		funcs:    make(map[string]api.Function, len(entryPoints)),
		pending:  newPendingTable(),
		stackBuf: make([]uint64, 4),
	}

	if err := e.instantiate(ctx, wasm, cfg); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	Logger().Debug("engine loaded",
		zap.Int("wasm_bytes", len(wasm)),
		zap.Uint32("memory_pages", cfg.MemoryLimitPages))
	return e, nil
}

func (e *WazeroEngine) instantiate(ctx context.Context, wasm []byte, cfg *Config) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		return errors.Instantiation(err)
	}

	_, err := e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.onDone),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export(HostOnDone).
		Instantiate(ctx)
	if err != nil {
		return errors.Instantiation(err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Load("compile engine module", err)
	}

	allocName, freeName, err := checkExports(compiled)
	if err != nil {
		return err
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	modCfg := wazero.NewModuleConfig().
		WithName(cfg.Name).
		WithRandSource(rnd).
		WithSysWalltime().
		WithSysNanotime().
		WithStartFunctions("_initialize")
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return errors.Instantiation(err)
	}

	e.module = mod
	e.memory = mod.Memory()
	e.allocFn = mod.ExportedFunction(allocName)
	e.freeFn = mod.ExportedFunction(freeName)
	e.allocArgs = len(e.allocFn.Definition().ParamTypes())
	e.freeArgs = len(e.freeFn.Definition().ParamTypes())
	for _, name := range entryPoints {
		e.funcs[name] = mod.ExportedFunction(name)
	}
	return nil
}

// checkExports verifies the guest implements the engine ABI before any
// instance is created, and picks the allocator pair.
func checkExports(compiled wazero.CompiledModule) (allocName, freeName string, err error) {
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return "", "", errors.MissingExport(ExportMemory)
	}

	funcs := compiled.ExportedFunctions()
	for _, name := range allocNames {
		if _, ok := funcs[name]; ok {
			allocName = name
			break
		}
	}
	if allocName == "" {
		return "", "", errors.MissingExport(mallocAlloc)
	}
	for _, name := range freeNames {
		if _, ok := funcs[name]; ok {
			freeName = name
			break
		}
	}
	if freeName == "" {
		return "", "", errors.MissingExport(simpleFree)
	}

	for _, name := range entryPoints {
		if _, ok := funcs[name]; !ok {
			return "", "", errors.MissingExport(name)
		}
	}
	return allocName, freeName, nil
}

// Shutdown closes the guest instance and the wazero runtime.
func (e *WazeroEngine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := e.runtime.Close(ctx)
	e.module = nil
	e.memory = nil
	e.allocFn = nil
	e.freeFn = nil
	e.funcs = nil
	return err
}

// onDone is the xmrkeys.on_done(cb, ptr, len) host import. The payload is
// borrowed from the guest for the duration of the call, so it is copied.
// Delivery to the caller waits until the export returns: the instance is
// still on the stack here.
func (e *WazeroEngine) onDone(_ context.Context, mod api.Module, stack []uint64) {
	id := api.DecodeU32(stack[0])
	ptr := api.DecodeU32(stack[1])
	length := api.DecodeU32(stack[2])

	op, ok := e.pending.lookup(id)
	if !ok {
		Logger().Warn("completion for unknown callback", zap.Uint32("cb", id))
		return
	}

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		e.pending.signal(id, nil, errors.OutOfBounds(op, ptr, length))
		return
	}
	payload := make([]byte, len(data))
	copy(payload, data)

	result, err := unwrapEnvelope(op, payload)
	if _, first := e.pending.signal(id, result, err); !first {
		Logger().Warn("completion signaled more than once",
			zap.String("op", op),
			zap.Uint32("cb", id))
	}
}

func (e *WazeroEngine) function(op string) (api.Function, error) {
	if e.closed.Load() {
		return nil, errors.NotInitialized(errors.PhaseEngine, "engine")
	}
	fn := e.funcs[op]
	if fn == nil {
		return nil, errors.MissingExport(op)
	}
	return fn, nil
}

func (e *WazeroEngine) alloc(ctx context.Context, op string, size uint32) (uint32, error) {
	var err error
	if e.allocArgs >= 4 {
		// cabi_realloc(old_ptr, old_size, align, new_size)
		e.stackBuf[0] = 0
		e.stackBuf[1] = 0
		e.stackBuf[2] = 1
		e.stackBuf[3] = uint64(size)
		err = e.allocFn.CallWithStack(ctx, e.stackBuf[:4])
	} else {
		e.stackBuf[0] = uint64(size)
		err = e.allocFn.CallWithStack(ctx, e.stackBuf[:1])
	}
	if err != nil {
		return 0, errors.AllocationFailed(op, size, err)
	}
	ptr := uint32(e.stackBuf[0])
	if ptr == 0 && size > 0 {
		return 0, errors.AllocationFailed(op, size, nil)
	}
	return ptr, nil
}

func (e *WazeroEngine) free(ctx context.Context, ptr, size uint32) {
	if ptr == 0 {
		return
	}
	var err error
	if e.freeArgs >= 3 {
		e.stackBuf[0] = uint64(ptr)
		e.stackBuf[1] = uint64(size)
		e.stackBuf[2] = 1
		err = e.freeFn.CallWithStack(ctx, e.stackBuf[:3])
	} else {
		e.stackBuf[0] = uint64(ptr)
		err = e.freeFn.CallWithStack(ctx, e.stackBuf[:1])
	}
	if err != nil {
		Logger().Warn("free guest buffer failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// writeBytes copies data into a fresh guest buffer.
func (e *WazeroEngine) writeBytes(ctx context.Context, op string, data []byte) (uint32, uint32, error) {
	size := uint32(len(data))
	ptr, err := e.alloc(ctx, op, size)
	if err != nil {
		return 0, 0, err
	}
	if size > 0 && !e.memory.Write(ptr, data) {
		e.free(ctx, ptr, size)
		return 0, 0, errors.OutOfBounds(op, ptr, size)
	}
	return ptr, size, nil
}

// readResult copies a packed guest result out and frees it.
func (e *WazeroEngine) readResult(ctx context.Context, op string, packed uint64) ([]byte, error) {
	ptr, length := unpackPtrLen(packed)
	if length == 0 {
		e.free(ctx, ptr, 0)
		return nil, errors.InvalidData(errors.PhaseDecode, op, "empty result")
	}
	data, ok := e.memory.Read(ptr, length)
	if !ok {
		return nil, errors.OutOfBounds(op, ptr, length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	e.free(ctx, ptr, length)
	return out, nil
}

// call invokes an accessor export and unwraps its envelope.
func (e *WazeroEngine) call(ctx context.Context, op string, params ...uint64) (json.RawMessage, error) {
	fn, err := e.function(op)
	if err != nil {
		return nil, err
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngine).
			Op(op).
			Detail("guest call failed").
			Cause(err).
			Build()
	}
	if len(results) != 1 {
		return nil, errors.InvalidData(errors.PhaseDecode, op, "expected one packed result")
	}
	data, err := e.readResult(ctx, op, results[0])
	if err != nil {
		return nil, err
	}
	return unwrapEnvelope(op, data)
}

// callWithCompletion runs a completion-signaled export and returns what the
// guest signaled. A guest that returns without signaling is an engine error.
func (e *WazeroEngine) callWithCompletion(ctx context.Context, op string, params ...uint64) (json.RawMessage, error) {
	fn, err := e.function(op)
	if err != nil {
		return nil, err
	}

	cb := e.pending.open(op)
	_, callErr := fn.Call(ctx, append(params, api.EncodeU32(cb))...)
	call, _ := e.pending.close(cb)

	if call != nil && call.signaled {
		if callErr != nil {
			Logger().Warn("guest trapped after signaling completion",
				zap.String("op", op),
				zap.Error(callErr))
		}
		return call.result, call.err
	}
	if callErr != nil {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngine).
			Op(op).
			Detail("guest call failed").
			Cause(callErr).
			Build()
	}
	return nil, errors.Engine(op, "completion not signaled")
}

func (e *WazeroEngine) create(ctx context.Context, op string, body any, done xmrkeys.CreateDone) {
	req, err := json.Marshal(body)
	if err != nil {
		done(0, errors.Wrap(errors.PhaseEngine, errors.KindInvalidData, err, "encode request"))
		return
	}
	if _, err := e.function(op); err != nil {
		done(0, err)
		return
	}

	ptr, size, err := e.writeBytes(ctx, op, req)
	if err != nil {
		done(0, err)
		return
	}
	raw, err := e.callWithCompletion(ctx, op, api.EncodeU32(ptr), api.EncodeU32(size))
	e.free(ctx, ptr, size)
	if err != nil {
		done(0, err)
		return
	}

	var res createResult
	if err := decodeResult(op, raw, &res); err != nil {
		done(0, err)
		return
	}
	if res.Handle == 0 {
		done(0, errors.InvalidData(errors.PhaseDecode, op, "engine returned handle 0"))
		return
	}
	done(xmrkeys.HandleID(res.Handle), nil)
}

// CreateRandom asks the guest for a new random wallet.
func (e *WazeroEngine) CreateRandom(ctx context.Context, req xmrkeys.RandomRequest, done xmrkeys.CreateDone) {
	e.create(ctx, fnCreateRandom, newRandomRequest(req), done)
}

// CreateFromMnemonic restores a wallet from a mnemonic and optional seed offset.
func (e *WazeroEngine) CreateFromMnemonic(ctx context.Context, req xmrkeys.MnemonicRequest, done xmrkeys.CreateDone) {
	e.create(ctx, fnCreateFromMnemonic, newMnemonicRequest(req), done)
}

// CreateFromKeys restores a wallet from whichever key material is given.
func (e *WazeroEngine) CreateFromKeys(ctx context.Context, req xmrkeys.KeysRequest, done xmrkeys.CreateDone) {
	e.create(ctx, fnCreateFromKeys, newKeysRequest(req), done)
}

// Close releases the wallet behind id inside the guest.
func (e *WazeroEngine) Close(ctx context.Context, id xmrkeys.HandleID, done xmrkeys.CloseDone) {
	_, err := e.callWithCompletion(ctx, fnCloseWallet, api.EncodeU32(uint32(id)))
	done(err)
}

func (e *WazeroEngine) MnemonicLanguages(ctx context.Context) ([]string, error) {
	raw, err := e.call(ctx, fnMnemonicLanguages)
	if err != nil {
		return nil, err
	}
	var res languagesResult
	if err := decodeResult(fnMnemonicLanguages, raw, &res); err != nil {
		return nil, err
	}
	return res.Languages, nil
}

func (e *WazeroEngine) stringAccessor(ctx context.Context, op string, id xmrkeys.HandleID) (string, error) {
	raw, err := e.call(ctx, op, api.EncodeU32(uint32(id)))
	if err != nil {
		return "", err
	}
	var s string
	if err := decodeResult(op, raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (e *WazeroEngine) Mnemonic(ctx context.Context, id xmrkeys.HandleID) (string, error) {
	return e.stringAccessor(ctx, fnMnemonic, id)
}

func (e *WazeroEngine) MnemonicLanguage(ctx context.Context, id xmrkeys.HandleID) (string, error) {
	return e.stringAccessor(ctx, fnMnemonicLanguage, id)
}

func (e *WazeroEngine) PrivateSpendKey(ctx context.Context, id xmrkeys.HandleID) (string, error) {
	return e.stringAccessor(ctx, fnPrivateSpendKey, id)
}

func (e *WazeroEngine) PrivateViewKey(ctx context.Context, id xmrkeys.HandleID) (string, error) {
	return e.stringAccessor(ctx, fnPrivateViewKey, id)
}

func (e *WazeroEngine) PublicViewKey(ctx context.Context, id xmrkeys.HandleID) (string, error) {
	return e.stringAccessor(ctx, fnPublicViewKey, id)
}

func (e *WazeroEngine) PublicSpendKey(ctx context.Context, id xmrkeys.HandleID) (string, error) {
	return e.stringAccessor(ctx, fnPublicSpendKey, id)
}

func (e *WazeroEngine) Address(ctx context.Context, id xmrkeys.HandleID, account, index uint32) (string, error) {
	raw, err := e.call(ctx, fnAddress,
		api.EncodeU32(uint32(id)), api.EncodeU32(account), api.EncodeU32(index))
	if err != nil {
		return "", err
	}
	var s string
	if err := decodeResult(fnAddress, raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (e *WazeroEngine) AddressIndex(ctx context.Context, id xmrkeys.HandleID, address string) (xmrkeys.SubaddressIndex, error) {
	var idx xmrkeys.SubaddressIndex
	if _, err := e.function(fnAddressIndex); err != nil {
		return idx, err
	}

	ptr, size, err := e.writeBytes(ctx, fnAddressIndex, []byte(address))
	if err != nil {
		return idx, err
	}
	raw, err := e.call(ctx, fnAddressIndex,
		api.EncodeU32(uint32(id)), api.EncodeU32(ptr), api.EncodeU32(size))
	e.free(ctx, ptr, size)
	if err != nil {
		return idx, err
	}
	if string(raw) == "null" || len(raw) == 0 {
		return idx, errors.InvalidData(errors.PhaseDecode, fnAddressIndex, "no subaddress in result")
	}
	err = decodeResult(fnAddressIndex, raw, &idx)
	return idx, err
}

func (e *WazeroEngine) Version(ctx context.Context, id xmrkeys.HandleID) (xmrkeys.Version, error) {
	var v xmrkeys.Version
	raw, err := e.call(ctx, fnVersion, api.EncodeU32(uint32(id)))
	if err != nil {
		return v, err
	}
	err = decodeResult(fnVersion, raw, &v)
	return v, err
}

func (e *WazeroEngine) IsWatchOnly(ctx context.Context, id xmrkeys.HandleID) (bool, error) {
	raw, err := e.call(ctx, fnIsWatchOnly, api.EncodeU32(uint32(id)))
	if err != nil {
		return false, err
	}
	var watchOnly bool
	err = decodeResult(fnIsWatchOnly, raw, &watchOnly)
	return watchOnly, err
}
