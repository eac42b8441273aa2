// Package mwpolicy is the Enforcing Handler Middleware (C6): a transparent
// wrapper that adds policy enforcement to any Handler implementation
// without altering the MCP protocol surface.
//
// Grounded method-for-method on
// original_source/crates/mcpkit-rs/src/handler/server/policy.rs's
// ServerHandler trait and its PolicyEnabledServer wrapper.
package mwpolicy

import (
	"context"
	"encoding/json"
)

// RPCError is the JSON-RPC error envelope the middleware returns on denial,
// shaped like the original's ErrorData{code, message, data}.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// permissionDenied is the standard MCP error for a policy-denied request:
// JSON-RPC "invalid params" (-32602), carrying a human-readable message
// naming the action and resource.
func permissionDenied(action, resource string) *RPCError {
	return &RPCError{Code: -32602, Message: "Access denied: " + action + " for " + resource}
}

// Tool is the subset of an MCP tool descriptor the middleware needs to
// filter a ListTools result.
type Tool struct {
	Name string
	Rest json.RawMessage // the tool's remaining descriptor fields, passed through unmodified
}

// ListToolsResult mirrors the original's ListToolsResult shape closely
// enough to filter without needing the full MCP result schema.
type ListToolsResult struct {
	Tools      []Tool
	NextCursor string
	Meta       json.RawMessage
}

// CallToolParams is the subset of tools/call params the middleware checks.
type CallToolParams struct {
	Name      string
	Arguments json.RawMessage
}

// ReadResourceParams is the subset of resources/read params the middleware
// checks.
type ReadResourceParams struct {
	URI string
}

// Handler is the protocol surface the middleware wraps, modeled on the
// original's ServerHandler trait. Every method an embedder's real handler
// doesn't care to specialize can simply delegate to a no-op base
// implementation; NoopHandler below provides one.
type Handler interface {
	Initialize(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	Ping(ctx context.Context) error
	ListTools(ctx context.Context, params json.RawMessage) (ListToolsResult, error)
	CallTool(ctx context.Context, params CallToolParams) (json.RawMessage, error)
	ListResources(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	ReadResource(ctx context.Context, params ReadResourceParams) (json.RawMessage, error)
	ListPrompts(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	GetPrompt(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	Complete(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	SetLevel(ctx context.Context, params json.RawMessage) error
	ListResourceTemplates(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	Subscribe(ctx context.Context, params json.RawMessage) error
	Unsubscribe(ctx context.Context, params json.RawMessage) error
	OnCustomRequest(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
	OnInitialized(ctx context.Context)
	OnCustomNotification(ctx context.Context, method string, params json.RawMessage)
}

// NoopHandler implements Handler with methods that return a zero value and
// no error. Embed it in a partial handler to satisfy the interface without
// writing out every method.
type NoopHandler struct{}

func (NoopHandler) Initialize(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) Ping(context.Context) error { return nil }
func (NoopHandler) ListTools(context.Context, json.RawMessage) (ListToolsResult, error) {
	return ListToolsResult{}, nil
}
func (NoopHandler) CallTool(context.Context, CallToolParams) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) ListResources(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) ReadResource(context.Context, ReadResourceParams) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) ListPrompts(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) GetPrompt(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) Complete(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) SetLevel(context.Context, json.RawMessage) error { return nil }
func (NoopHandler) ListResourceTemplates(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) Subscribe(context.Context, json.RawMessage) error   { return nil }
func (NoopHandler) Unsubscribe(context.Context, json.RawMessage) error { return nil }
func (NoopHandler) OnCustomRequest(context.Context, string, json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}
func (NoopHandler) OnInitialized(context.Context)                               {}
func (NoopHandler) OnCustomNotification(context.Context, string, json.RawMessage) {}
