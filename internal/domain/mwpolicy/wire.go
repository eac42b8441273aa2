package mwpolicy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/mcpkit-go/policyguard/internal/domain/decision"
	"github.com/mcpkit-go/policyguard/internal/domain/engine"
	"github.com/mcpkit-go/policyguard/pkg/mcp"
)

// ErrPolicyDenied is the sentinel a WireInterceptor's returned error
// unwraps to, so callers can distinguish a policy denial from a transport
// or decode failure with errors.Is.
var ErrPolicyDenied = errors.New("policy denied")

// WireDenyError carries the structured detail behind an ErrPolicyDenied
// returned by WireInterceptor.
type WireDenyError struct {
	Kind     string
	Resource string
}

func (e *WireDenyError) Error() string {
	return fmt.Sprintf("policy denied: %s for %s", e.Kind, e.Resource)
}

func (e *WireDenyError) Unwrap() error { return ErrPolicyDenied }

// toolCallParams is the tools/call params shape read off the wire.
type toolCallParams struct {
	Name string `json:"name"`
}

// WireInterceptor enforces tool-call policy at the raw JSON-RPC message
// boundary, before a message is ever decoded into a typed Handler call.
// This is the host function boundary the glossary describes: a stdio or
// streamable-HTTP transport that hands policyguard raw bytes (rather than
// already-decoded CallToolParams) can interpose here instead of through
// EnforcingHandler.
//
// Grounded on the teacher's own
// internal/domain/proxy.PolicyInterceptor.Intercept: non-tool-call messages
// pass through untouched, tools/call params are pulled out of the decoded
// jsonrpc.Request, and a denial returns a structured error instead of
// forwarding — the auth/session-context checks that interceptor also does
// are out of scope here, since this module has no identity model.
type WireInterceptor struct {
	engine     *decision.Engine
	violations *engine.ViolationLog
	logger     *slog.Logger
}

// NewWireInterceptor builds a wire-level interceptor. violations and logger
// may be nil to disable violation recording and logging respectively.
func NewWireInterceptor(eng *decision.Engine, violations *engine.ViolationLog, logger *slog.Logger) *WireInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WireInterceptor{engine: eng, violations: violations, logger: logger}
}

// Intercept inspects a wrapped message and blocks it if it is a tools/call
// request naming a tool the policy denies. Every other message, including a
// tools/call whose params fail to parse, is passed through unchanged —
// malformed params are the inner handler's problem to reject, not this
// interceptor's.
func (w *WireInterceptor) Intercept(ctx context.Context, msg *mcp.Message) error {
	if !msg.IsToolCall() {
		return nil
	}

	req := msg.Request()
	if req == nil || req.Params == nil {
		return nil
	}

	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return nil
	}

	if w.engine.IsToolAllowed(params.Name) {
		w.logger.Debug("wire: tool call allowed by policy", "tool", params.Name)
		return nil
	}

	w.logger.Warn("wire: tool call denied by policy", "tool", params.Name)
	if w.violations != nil {
		go w.violations.Record(engine.Violation{
			Kind:        "tool",
			Resource:    params.Name,
			UnixSeconds: time.Now().Unix(),
		})
	}
	return &WireDenyError{Kind: "tool", Resource: params.Name}
}

// DenyResponseBytes builds the raw JSON-RPC wire bytes a transport should
// write back to the client in response to a WireDenyError, echoing the
// original request's ID. It delegates to mcp.EncodeMessage so the same
// codec both the request and the denial response travel through stays the
// single source of truth for wire framing.
func DenyResponseBytes(requestID jsonrpc.ID, denyErr *WireDenyError) ([]byte, error) {
	resp := &jsonrpc.Response{
		ID: requestID,
		Error: &jsonrpc.Error{
			Code:    -32602,
			Message: "Access denied: " + denyErr.Kind + " for " + denyErr.Resource,
		},
	}
	return mcp.EncodeMessage(resp)
}
