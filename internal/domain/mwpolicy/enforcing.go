package mwpolicy

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcpkit-go/policyguard/internal/domain/decision"
	"github.com/mcpkit-go/policyguard/internal/domain/engine"
	"github.com/mcpkit-go/policyguard/internal/domain/permcache"
	"github.com/mcpkit-go/policyguard/internal/telemetry"
)

// denialAttr builds the "policy.denial.kind" attribute option attached to
// every DenialCounter increment.
func denialAttr(kind string) metric.AddOption {
	return metric.WithAttributes(attribute.String("policy.denial.kind", kind))
}

// EnforcingHandler wraps an inner Handler and transparently filters tool
// listings and denies forbidden invocations, without requiring the inner
// handler's cooperation. It implements Handler itself, so it composes with
// any transport that already knows how to drive a Handler.
//
// Grounded method-for-method on
// original_source/crates/mcpkit-rs/src/handler/server/policy.rs's
// PolicyEnabledServer, and in spirit on the teacher's
// internal/domain/proxy.PolicyInterceptor (deny short-circuit before
// delegating, structured deny error, logging before forwarding).
type EnforcingHandler struct {
	inner      Handler
	engine     *decision.Engine
	cache      *permcache.Cache // nil disables caching; never shared across goroutines
	violations *engine.ViolationLog
	logger     *slog.Logger
}

// NewEnforcingHandler wraps inner with policy enforcement. eng may wrap a
// nil compiled policy, in which case every query answers true and the
// middleware is byte-identical to inner (the no-policy-transparency
// requirement). cache and violations may be nil to disable caching and
// violation recording respectively; logger may be nil to disable logging.
func NewEnforcingHandler(inner Handler, eng *decision.Engine, cache *permcache.Cache, violations *engine.ViolationLog, logger *slog.Logger) *EnforcingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnforcingHandler{inner: inner, engine: eng, cache: cache, violations: violations, logger: logger}
}

func (h *EnforcingHandler) isToolAllowed(name string) bool {
	if h.cache != nil {
		if v, ok := h.cache.CheckTool(name); ok {
			return v
		}
	}
	verdict := h.engine.IsToolAllowed(name)
	if h.cache != nil {
		h.cache.Insert(permcache.Action{Kind: permcache.ActionTool, Key: name}, verdict)
	}
	return verdict
}

func (h *EnforcingHandler) isStorageAllowed(uri, op string) bool {
	if h.cache != nil {
		if v, ok := h.cache.CheckStorage(uri, op); ok {
			return v
		}
	}
	verdict := h.engine.IsStorageAllowed(uri, op)
	if h.cache != nil {
		h.cache.Insert(permcache.Action{Kind: permcache.ActionStorage, Key: uri, Op: op}, verdict)
	}
	return verdict
}

// recordViolation appends a denial to the shared violation log on a
// detached goroutine so the request path never blocks on the log's mutex.
// Per spec, ordering between this append and the error response reaching
// the client is unspecified.
func (h *EnforcingHandler) recordViolation(kind, resource, tool string) {
	if h.violations == nil {
		return
	}
	go h.violations.Record(engine.Violation{
		Kind:        kind,
		Resource:    resource,
		UnixSeconds: time.Now().Unix(),
		Tool:        tool,
	})
}

// Initialize forwards unchanged.
func (h *EnforcingHandler) Initialize(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.Initialize(ctx, params)
}

// Ping forwards unchanged.
func (h *EnforcingHandler) Ping(ctx context.Context) error { return h.inner.Ping(ctx) }

// ListTools calls inner then filters the returned tool list through
// IsToolAllowed. The inner handler is never told which tools were filtered;
// pagination cursor and meta are forwarded unchanged.
func (h *EnforcingHandler) ListTools(ctx context.Context, params json.RawMessage) (ListToolsResult, error) {
	result, err := h.inner.ListTools(ctx, params)
	if err != nil {
		return ListToolsResult{}, err
	}
	filtered := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		if h.isToolAllowed(t.Name) {
			filtered = append(filtered, t)
		}
	}
	result.Tools = filtered
	return result, nil
}

// CallTool consults IsToolAllowed before delegating. On deny it returns a
// protocol-legal invalid-params error and never invokes the inner handler.
func (h *EnforcingHandler) CallTool(ctx context.Context, params CallToolParams) (json.RawMessage, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "policyguard.middleware.call_tool")
	defer span.End()

	if !h.isToolAllowed(params.Name) {
		h.logger.Warn("policy denied tool call", "tool", params.Name)
		h.recordViolation("tool", params.Name, params.Name)
		telemetry.DenialCounter.Add(ctx, 1, denialAttr("tool"))
		return nil, permissionDenied("tool", params.Name)
	}
	return h.inner.CallTool(ctx, params)
}

// ListResources forwards unchanged. The spec preserves this choice
// deliberately (Open Question §9): filtering list_resources would make
// every listing pay the cost of a per-entry policy check; read_resource
// already enforces the same access on the hot path that matters.
func (h *EnforcingHandler) ListResources(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.ListResources(ctx, params)
}

// ReadResource consults IsStorageAllowed(uri, "read") before delegating.
func (h *EnforcingHandler) ReadResource(ctx context.Context, params ReadResourceParams) (json.RawMessage, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "policyguard.middleware.read_resource")
	defer span.End()

	if !h.isStorageAllowed(params.URI, "read") {
		h.logger.Warn("policy denied resource read", "uri", params.URI)
		h.recordViolation("resource", params.URI, "")
		telemetry.DenialCounter.Add(ctx, 1, denialAttr("resource"))
		return nil, permissionDenied("resource", params.URI)
	}
	return h.inner.ReadResource(ctx, params)
}

// ListPrompts forwards unchanged.
func (h *EnforcingHandler) ListPrompts(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.ListPrompts(ctx, params)
}

// GetPrompt forwards unchanged.
func (h *EnforcingHandler) GetPrompt(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.GetPrompt(ctx, params)
}

// Complete forwards unchanged.
func (h *EnforcingHandler) Complete(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.Complete(ctx, params)
}

// SetLevel forwards unchanged.
func (h *EnforcingHandler) SetLevel(ctx context.Context, params json.RawMessage) error {
	return h.inner.SetLevel(ctx, params)
}

// ListResourceTemplates forwards unchanged.
func (h *EnforcingHandler) ListResourceTemplates(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.ListResourceTemplates(ctx, params)
}

// Subscribe forwards unchanged.
func (h *EnforcingHandler) Subscribe(ctx context.Context, params json.RawMessage) error {
	return h.inner.Subscribe(ctx, params)
}

// Unsubscribe forwards unchanged.
func (h *EnforcingHandler) Unsubscribe(ctx context.Context, params json.RawMessage) error {
	return h.inner.Unsubscribe(ctx, params)
}

// OnCustomRequest forwards unchanged.
func (h *EnforcingHandler) OnCustomRequest(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return h.inner.OnCustomRequest(ctx, method, params)
}

// OnInitialized forwards unchanged.
func (h *EnforcingHandler) OnInitialized(ctx context.Context) { h.inner.OnInitialized(ctx) }

// OnCustomNotification forwards unchanged.
func (h *EnforcingHandler) OnCustomNotification(ctx context.Context, method string, params json.RawMessage) {
	h.inner.OnCustomNotification(ctx, method, params)
}

var _ Handler = (*EnforcingHandler)(nil)
