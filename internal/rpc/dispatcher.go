package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"rpcgate/internal/jsonrpc"
)

// Method is a registered method implementation. It receives the raw params
// and returns a result to marshal, or an error. Returning a *jsonrpc.Error
// passes the error object to the client unchanged; any other error is
// reported as an internal error.
type Method func(ctx context.Context, params json.RawMessage) (any, error)

// Dispatcher routes requests to registered methods. It implements Handler
// and is safe for concurrent calls.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[string]Method
}

// NewDispatcher creates an empty method registry.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		methods: make(map[string]Method),
	}
}

// Register adds a method under the given name, replacing any previous
// registration.
func (d *Dispatcher) Register(name string, m Method) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[name] = m
}

// Methods returns the registered method names in sorted order.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call looks up and invokes the requested method. Errors are materialized
// as JSON-RPC error responses; the dispatcher never panics on unknown
// methods or failed result marshaling.
func (d *Dispatcher) Call(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	d.mu.RLock()
	method, ok := d.methods[req.Method]
	d.mu.RUnlock()

	if !ok {
		return jsonrpc.ErrorResponse(req.ID,
			jsonrpc.NewError(jsonrpc.CodeMethodNotFound, fmt.Sprintf("Method %q not found", req.Method)))
	}

	result, err := method(ctx, req.Params)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			return jsonrpc.ErrorResponse(req.ID, rpcErr)
		}
		slog.Error("Method call failed", "method", req.Method, "error", err)
		return jsonrpc.ErrorResponse(req.ID,
			jsonrpc.NewError(jsonrpc.CodeInternalError, "Internal error"))
	}

	resp, err := jsonrpc.ResultResponse(req.ID, result)
	if err != nil {
		slog.Error("Failed to marshal method result", "method", req.Method, "error", err)
		return jsonrpc.ErrorResponse(req.ID,
			jsonrpc.NewError(jsonrpc.CodeInternalError, "Internal error"))
	}
	return resp
}
