package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
)

// Extension is a named, optional policy extension — e.g. a CEL expression
// evaluator consulted for extension-carried rules the core four categories
// don't model. Extensions never run on the Decision Engine's hot path; they
// are looked up and invoked explicitly by an embedder.
type Extension interface {
	ID() string
}

// RuntimeConfig is handed to an Enforcer's Enforce method: the capability
// bitset a compiled policy grants, scoped to one named runtime.
type RuntimeConfig struct {
	Runtime      string
	Capabilities compiledpolicy.Capabilities
}

// Enforcer applies a RuntimeConfig to a concrete runtime — e.g. the wazero
// sandbox adapter translating Capabilities into WASI host-function wiring.
type Enforcer interface {
	RuntimeName() string
	Enforce(ctx context.Context, cfg RuntimeConfig) error
}

// Registry holds the extensions and enforcers an embedder has registered,
// plus the currently active compiled policy. Reads (GetExtension,
// GetEnforcer, ApplyToRuntime) vastly outnumber writes (Register*, which
// happen once at startup), so a plain RWMutex is used rather than an
// atomic.Value snapshot — registration churn, unlike decision queries, is
// not latency-sensitive.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Extension
	enforcers  map[string]Enforcer
	compiled   *compiledpolicy.Policy
}

// NewRegistry returns an empty registry with no policy loaded.
func NewRegistry() *Registry {
	return &Registry{
		extensions: map[string]Extension{},
		enforcers:  map[string]Enforcer{},
	}
}

// RegisterExtension makes ext available under its own ID, replacing any
// extension previously registered under the same ID.
func (r *Registry) RegisterExtension(ext Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions[ext.ID()] = ext
}

// RegisterEnforcer makes e available under its own runtime name, replacing
// any enforcer previously registered under the same name.
func (r *Registry) RegisterEnforcer(e Enforcer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enforcers[e.RuntimeName()] = e
}

// GetExtension looks up a registered extension by ID.
func (r *Registry) GetExtension(id string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.extensions[id]
	return ext, ok
}

// GetEnforcer looks up a registered enforcer by runtime name.
func (r *Registry) GetEnforcer(runtime string) (Enforcer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enforcers[runtime]
	return e, ok
}

// ListExtensions returns the IDs of every registered extension.
func (r *Registry) ListExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.extensions))
	for id := range r.extensions {
		out = append(out, id)
	}
	return out
}

// ListEnforcers returns the runtime names of every registered enforcer.
func (r *Registry) ListEnforcers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.enforcers))
	for name := range r.enforcers {
		out = append(out, name)
	}
	return out
}

// SetPolicy installs the compiled policy the registry hands to enforcers on
// ApplyToRuntime. Replaces whatever was previously installed.
func (r *Registry) SetPolicy(cp *compiledpolicy.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compiled = cp
}

// ApplyToRuntime builds a RuntimeConfig from the currently installed
// compiled policy's capability bitset and hands it to the named enforcer.
func (r *Registry) ApplyToRuntime(ctx context.Context, runtimeName string) error {
	r.mu.RLock()
	cp := r.compiled
	enforcer, ok := r.enforcers[runtimeName]
	r.mu.RUnlock()

	if cp == nil {
		return fmt.Errorf("engine: no policy loaded")
	}
	if !ok {
		return fmt.Errorf("engine: no enforcer registered for runtime: %s", runtimeName)
	}

	cfg := RuntimeConfig{Runtime: runtimeName, Capabilities: cp.Capabilities}
	return enforcer.Enforce(ctx, cfg)
}
