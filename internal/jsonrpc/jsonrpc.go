// Package jsonrpc defines the JSON-RPC 2.0 wire types used by the server.
// Request and response identifiers are kept as raw JSON so that number,
// string, and null ids survive a round trip byte-for-byte.
package jsonrpc

import (
	"encoding/json"
)

// Version is the protocol version string carried in every message.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes, plus the HTTP-flavored code used for
// rate-limited requests.
const (
	CodeParseError      = -32700
	CodeInvalidRequest  = -32600
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternalError   = -32603
	CodeTooManyRequests = 429
)

// Request is a single JSON-RPC call. A request without an id is a
// notification and expects no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is a single JSON-RPC reply. Exactly one of Result and Error is
// set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface so method handlers can return an
// *Error directly.
func (e *Error) Error() string {
	return e.Message
}

// ErrTooManyRequests is the error attached to responses denied by the rate
// limiter. Code and message are constants, so a single shared value is used
// for every denial.
var ErrTooManyRequests = &Error{Code: CodeTooManyRequests, Message: "Too many requests"}

// NewError creates an error object with no data member.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrorResponse builds an error reply that echoes the given request id. A
// nil id is rendered as JSON null, which is what the protocol requires for
// errors that could not be correlated to a request.
func ErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   rpcErr,
	}
}

// ResultResponse builds a success reply carrying the marshaled result.
func ResultResponse(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if id == nil {
		id = json.RawMessage("null")
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Result:  raw,
	}, nil
}
