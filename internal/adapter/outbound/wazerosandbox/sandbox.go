// Package wazerosandbox wires the Sandbox Capability Mapper's (C5) preopen
// directory list into a real wazero runtime: deny-by-default, with only the
// mounts and capabilities a compiled policy explicitly grants.
//
// Grounded on the teacher pack's WASISandbox (a different example repo's
// wazero-based sandbox): the deny-by-default runtime/module configuration
// shape, memory-page conversion, and CPU-deadline-via-context pattern are
// carried over; filesystem mounting is new, driven by sandbox.PreopenDirs
// instead of that sandbox's "no filesystem, ever" stance.
package wazerosandbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mcpkit-go/policyguard/internal/domain/decision"
	"github.com/mcpkit-go/policyguard/internal/domain/sandbox"
)

// Config bounds the resources a single guest module execution may consume.
type Config struct {
	MemoryLimitBytes uint64
	CPUTimeLimit     time.Duration
}

// Runtime is a policy-configured wazero sandbox. One Runtime is built per
// compiled policy; its mounts and capability wiring are fixed for the
// Runtime's lifetime.
type Runtime struct {
	runtime wazero.Runtime
	config  wazero.ModuleConfig
	limits  Config
}

// New builds a wazero runtime whose filesystem mounts are derived entirely
// from the decision engine's compiled policy. WASI preview1 host functions
// are always instantiated; no sockets are wired for any policy, and a
// policy that grants no filesystem access mounts nothing.
func New(ctx context.Context, engine *decision.Engine, cfg Config) (*Runtime, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.CPUTimeLimit > 0 {
		// Without this, wazero does not stop guest code when Run's deadline
		// passes.
		runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
	}
	if cfg.MemoryLimitBytes > 0 {
		pages := uint32(cfg.MemoryLimitBytes / (64 * 1024))
		if pages == 0 {
			pages = 1
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(pages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return nil, fmt.Errorf("wazerosandbox: instantiate wasi: %w", err)
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_start")

	var cp = engine.Policy()
	fsConfig := wazero.NewFSConfig()
	hasMount := false
	for _, dir := range sandbox.PreopenDirs(cp) {
		hasMount = true
		if dir.DirPerms&sandbox.DirMutate != 0 {
			fsConfig = fsConfig.WithDirMount(dir.HostPath, dir.GuestPath)
		} else {
			fsConfig = fsConfig.WithReadOnlyDirMount(dir.HostPath, dir.GuestPath)
		}
	}
	if hasMount {
		modCfg = modCfg.WithFSConfig(fsConfig)
	}
	// No WithSysNanotime/WithRandSource/WithSysWalltime: a policy document
	// has no vocabulary for granting ambient clock or randomness access, so
	// none is ever wired regardless of capability bits.

	return &Runtime{runtime: r, config: modCfg, limits: cfg}, nil
}

// Run instantiates wasmBytes, feeds it input on stdin, and returns its
// stdout. Execution is bounded by the configured CPU time limit via context
// deadline.
func (rt *Runtime) Run(ctx context.Context, wasmBytes, input []byte) ([]byte, error) {
	if rt.limits.CPUTimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.limits.CPUTimeLimit)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	modCfg := rt.config.
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	compiled, err := rt.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("wazerosandbox: compile: %w", err)
	}
	defer func() { _ = compiled.Close(ctx) }()

	mod, err := rt.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wazerosandbox: execution timed out after %v", rt.limits.CPUTimeLimit)
		}
		return nil, fmt.Errorf("wazerosandbox: instantiate: %w", err)
	}
	defer func() { _ = mod.Close(ctx) }()

	if stderr.Len() > 0 {
		return stdout.Bytes(), fmt.Errorf("wazerosandbox: stderr output: %s", stderr.String())
	}
	return stdout.Bytes(), nil
}

// Close releases the underlying wazero runtime.
func (rt *Runtime) Close(ctx context.Context) error {
	return rt.runtime.Close(ctx)
}
