package policy

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Guest ABI. The module must export linear memory plus:
//
//	malloc(size u32) -> ptr u32
//	choose(ptr u32, n_features u32, n_candidates u32) -> i64
//
// The host writes the feature vector at ptr as little-endian float64s and
// calls choose; the result is the chosen candidate index, negative to
// decline. An optional free(ptr u32, size u32) export is called after.
const (
	exportMalloc = "malloc"
	exportChoose = "choose"
	exportFree   = "free"
)

// WASMPolicyConfig bounds the guest module.
type WASMPolicyConfig struct {
	Path           string
	MaxMemoryPages uint32        // 64KB pages; default 64 = 4MB
	ExecTimeout    time.Duration // per choose call; default 2s
}

// WASMPolicy runs a learned selection policy compiled to WASM inside a
// wazero sandbox. Guest calls are serialized; module instances are not safe
// for concurrent use.
type WASMPolicy struct {
	name    string
	runtime wazero.Runtime
	module  api.Module
	timeout time.Duration
	logger  *slog.Logger

	mu sync.Mutex
}

// NewWASMPolicy compiles and instantiates the module at cfg.Path. The
// caller owns Close.
func NewWASMPolicy(ctx context.Context, cfg WASMPolicyConfig, logger *slog.Logger) (*WASMPolicy, error) {
	if cfg.MaxMemoryPages == 0 {
		cfg.MaxMemoryPages = 64
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	wasmBytes, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read policy module: %w", err)
	}

	rtCfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(cfg.MaxMemoryPages)
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compile policy module: %w", err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName("policy").
		WithStartFunctions() // no auto _start
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate policy module: %w", err)
	}

	for _, export := range []string{exportMalloc, exportChoose} {
		if mod.ExportedFunction(export) == nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("policy module does not export %s", export)
		}
	}

	name := strings.TrimSuffix(filepath.Base(cfg.Path), ".wasm")
	logger.Info("wasm policy loaded",
		"path", cfg.Path, "name", name,
		"max_memory_pages", cfg.MaxMemoryPages, "exec_timeout", cfg.ExecTimeout)

	return &WASMPolicy{
		name:    name,
		runtime: rt,
		module:  mod,
		timeout: cfg.ExecTimeout,
		logger:  logger,
	}, nil
}

// Name returns the module's file name without extension.
func (p *WASMPolicy) Name() string { return p.name }

// Choose marshals the feature vector into guest memory and calls choose.
func (p *WASMPolicy) Choose(ctx context.Context, features []float64, candidates int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := make([]byte, 8*len(features))
	for i, f := range features {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ptr, err := p.writeGuest(execCtx, buf)
	if err != nil {
		return 0, err
	}
	defer p.freeGuest(ptr, uint32(len(buf)))

	results, err := p.module.ExportedFunction(exportChoose).Call(execCtx,
		uint64(ptr), uint64(len(features)), uint64(candidates))
	if err != nil {
		if execCtx.Err() != nil {
			return 0, fmt.Errorf("policy choose timed out after %s", p.timeout)
		}
		return 0, fmt.Errorf("policy choose: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("policy choose returned no result")
	}
	return int(int64(results[0])), nil
}

// Close releases the runtime and module.
func (p *WASMPolicy) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runtime.Close(ctx)
}

// writeGuest copies data into guest memory via the module's malloc.
func (p *WASMPolicy) writeGuest(ctx context.Context, data []byte) (uint32, error) {
	size := uint32(len(data))
	if size == 0 {
		return 0, nil
	}
	results, err := p.module.ExportedFunction(exportMalloc).Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("policy malloc(%d): %w", size, err)
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, fmt.Errorf("policy malloc(%d) returned null", size)
	}
	ptr := uint32(results[0])
	if !p.module.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("policy memory write out of bounds at ptr=%d len=%d", ptr, size)
	}
	return ptr, nil
}

// freeGuest releases guest memory if the module exports free.
func (p *WASMPolicy) freeGuest(ptr, size uint32) {
	if ptr == 0 || size == 0 {
		return
	}
	free := p.module.ExportedFunction(exportFree)
	if free == nil {
		return
	}
	_, _ = free.Call(context.Background(), uint64(ptr), uint64(size))
}
