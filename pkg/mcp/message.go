// Package mcp provides MCP message types and JSON-RPC codec utilities used
// at the request-handler enforcement boundary.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Direction indicates the flow direction of a message.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client->server"
	case ServerToClient:
		return "server->client"
	default:
		return "unknown"
	}
}

// Message wraps a decoded JSON-RPC message with enforcement metadata. It
// stores both the raw bytes (for efficient passthrough) and the decoded
// message (for policy inspection).
type Message struct {
	// Raw contains the original bytes of the message.
	Raw []byte

	Direction Direction

	// Decoded is either *jsonrpc.Request or *jsonrpc.Response.
	Decoded jsonrpc.Message

	Timestamp time.Time

	// ParsedParams caches the parsed request params across enforcement
	// checks that both need to inspect them.
	ParsedParams map[string]interface{}
}

// IsRequest returns true if the message is a JSON-RPC request.
func (m *Message) IsRequest() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// IsResponse returns true if the message is a JSON-RPC response.
func (m *Message) IsResponse() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Response)
	return ok
}

// Method returns the method name if this is a request, empty otherwise.
func (m *Message) Method() string {
	req, ok := m.Decoded.(*jsonrpc.Request)
	if !ok {
		return ""
	}
	return req.Method
}

// IsToolCall returns true if this is a tools/call request.
func (m *Message) IsToolCall() bool {
	return m.Method() == "tools/call"
}

// Request returns the underlying Request, or nil if this is not a request.
func (m *Message) Request() *jsonrpc.Request {
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// Response returns the underlying Response, or nil if this is not a response.
func (m *Message) Response() *jsonrpc.Response {
	resp, _ := m.Decoded.(*jsonrpc.Response)
	return resp
}

// ParseParams parses the request params and caches the result. Safe to
// call multiple times.
func (m *Message) ParseParams() map[string]interface{} {
	if m.ParsedParams != nil {
		return m.ParsedParams
	}
	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}
	var params map[string]interface{}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil
	}
	m.ParsedParams = params
	return params
}

// RawID extracts the request ID from the raw message bytes as
// json.RawMessage. The SDK's jsonrpc.ID type doesn't round-trip cleanly
// through interface{}, so callers that need to echo an ID back (e.g. in a
// denial response) should read it from here instead.
func (m *Message) RawID() json.RawMessage {
	if m.Raw == nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(m.Raw, &raw); err != nil {
		return nil
	}
	return raw["id"]
}
