package mwpolicy

import (
	"context"
	"encoding/json"
)

// CompositeHandler merges the tool listings of two handlers — typically a
// native (host-implemented) handler and a WASM-tool handler — and routes
// CallTool to whichever side's registry contains the requested name.
//
// This sits at the same request boundary as EnforcingHandler; the two
// compose freely (e.g. wrap a CompositeHandler in an EnforcingHandler so
// both native and WASM tools are policy-checked uniformly).
type CompositeHandler struct {
	native Handler
	wasm   Handler
	// wasmTools is the set of tool names CallTool routes to wasm. Populated
	// once at construction time; CompositeHandler never mutates it.
	wasmTools map[string]struct{}
}

// NewCompositeHandler builds a handler that dispatches by name: any tool
// name present in wasmTools goes to wasm; everything else goes to native.
// ListTools merges both sides' tool lists.
func NewCompositeHandler(native, wasm Handler, wasmTools map[string]struct{}) *CompositeHandler {
	if wasmTools == nil {
		wasmTools = map[string]struct{}{}
	}
	return &CompositeHandler{native: native, wasm: wasm, wasmTools: wasmTools}
}

func (h *CompositeHandler) isWasmTool(name string) bool {
	_, ok := h.wasmTools[name]
	return ok
}

// Initialize forwards to the native handler; the native side owns session
// lifecycle in this composition.
func (h *CompositeHandler) Initialize(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.native.Initialize(ctx, params)
}

// Ping forwards to the native handler.
func (h *CompositeHandler) Ping(ctx context.Context) error { return h.native.Ping(ctx) }

// ListTools merges the tool lists from both sides. The native side's
// pagination cursor and meta win; a paginated wasm tool list is not
// currently supported (wasm tool registries are expected to be small and
// returned in full).
func (h *CompositeHandler) ListTools(ctx context.Context, params json.RawMessage) (ListToolsResult, error) {
	nativeResult, err := h.native.ListTools(ctx, params)
	if err != nil {
		return ListToolsResult{}, err
	}
	wasmResult, err := h.wasm.ListTools(ctx, params)
	if err != nil {
		return ListToolsResult{}, err
	}
	merged := make([]Tool, 0, len(nativeResult.Tools)+len(wasmResult.Tools))
	merged = append(merged, nativeResult.Tools...)
	merged = append(merged, wasmResult.Tools...)
	nativeResult.Tools = merged
	return nativeResult, nil
}

// CallTool dispatches to the wasm handler if the name is present in its
// registry, else to the native handler.
func (h *CompositeHandler) CallTool(ctx context.Context, params CallToolParams) (json.RawMessage, error) {
	if h.isWasmTool(params.Name) {
		return h.wasm.CallTool(ctx, params)
	}
	return h.native.CallTool(ctx, params)
}

// ListResources forwards to the native handler.
func (h *CompositeHandler) ListResources(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.native.ListResources(ctx, params)
}

// ReadResource forwards to the native handler; wasm tools do not expose
// resources in this composition.
func (h *CompositeHandler) ReadResource(ctx context.Context, params ReadResourceParams) (json.RawMessage, error) {
	return h.native.ReadResource(ctx, params)
}

// ListPrompts forwards to the native handler.
func (h *CompositeHandler) ListPrompts(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.native.ListPrompts(ctx, params)
}

// GetPrompt forwards to the native handler.
func (h *CompositeHandler) GetPrompt(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.native.GetPrompt(ctx, params)
}

// Complete forwards to the native handler.
func (h *CompositeHandler) Complete(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.native.Complete(ctx, params)
}

// SetLevel forwards to the native handler.
func (h *CompositeHandler) SetLevel(ctx context.Context, params json.RawMessage) error {
	return h.native.SetLevel(ctx, params)
}

// ListResourceTemplates forwards to the native handler.
func (h *CompositeHandler) ListResourceTemplates(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.native.ListResourceTemplates(ctx, params)
}

// Subscribe forwards to the native handler.
func (h *CompositeHandler) Subscribe(ctx context.Context, params json.RawMessage) error {
	return h.native.Subscribe(ctx, params)
}

// Unsubscribe forwards to the native handler.
func (h *CompositeHandler) Unsubscribe(ctx context.Context, params json.RawMessage) error {
	return h.native.Unsubscribe(ctx, params)
}

// OnCustomRequest forwards to the native handler.
func (h *CompositeHandler) OnCustomRequest(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return h.native.OnCustomRequest(ctx, method, params)
}

// OnInitialized notifies both sides.
func (h *CompositeHandler) OnInitialized(ctx context.Context) {
	h.native.OnInitialized(ctx)
	h.wasm.OnInitialized(ctx)
}

// OnCustomNotification notifies both sides.
func (h *CompositeHandler) OnCustomNotification(ctx context.Context, method string, params json.RawMessage) {
	h.native.OnCustomNotification(ctx, method, params)
	h.wasm.OnCustomNotification(ctx, method, params)
}

var _ Handler = (*CompositeHandler)(nil)
