// Package rpc defines the request-handler contract shared by the method
// dispatcher and the middleware that wraps it, plus the dispatcher itself.
// Anything that can answer a JSON-RPC request implements Handler, so
// middleware composes by substitution: a wrapped handler is used exactly
// where the inner handler would be.
package rpc

import (
	"context"

	"rpcgate/internal/jsonrpc"
)

// Transport identifies the network carrier of a request. It is used only
// as a metric label.
type Transport string

// TransportWS is the WebSocket transport label.
const TransportWS Transport = "ws"

// Handler answers a single JSON-RPC request. Implementations must be safe
// for concurrent calls; multiple requests may be in flight on one handler
// at a time.
type Handler interface {
	Call(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response

// Call invokes the function.
func (f HandlerFunc) Call(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	return f(ctx, req)
}
