package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpcgate/internal/jsonrpc"
)

func callRequest(id, method string) *jsonrpc.Request {
	return &jsonrpc.Request{
		JSONRPC: jsonrpc.Version,
		ID:      json.RawMessage(id),
		Method:  method,
	}
}

func TestDispatcher_Call(t *testing.T) {
	d := NewDispatcher()
	d.Register("echo", func(ctx context.Context, params json.RawMessage) (any, error) {
		return map[string]bool{"ok": true}, nil
	})

	resp := d.Call(context.Background(), callRequest("1", "echo"))

	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
	assert.JSONEq(t, `1`, string(resp.ID))
}

func TestDispatcher_MethodNotFound(t *testing.T) {
	d := NewDispatcher()

	resp := d.Call(context.Background(), callRequest("1", "nope"))

	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, resp.Error.Code)
}

func TestDispatcher_RPCErrorPassesThrough(t *testing.T) {
	d := NewDispatcher()
	d.Register("limited", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "bad params")
	})

	resp := d.Call(context.Background(), callRequest("1", "limited"))

	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "bad params", resp.Error.Message)
}

func TestDispatcher_OpaqueErrorBecomesInternal(t *testing.T) {
	d := NewDispatcher()
	d.Register("boom", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, errors.New("database on fire")
	})

	resp := d.Call(context.Background(), callRequest("1", "boom"))

	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInternalError, resp.Error.Code)
	// Internal details must not leak to the client.
	assert.NotContains(t, resp.Error.Message, "database")
}

func TestDispatcher_Methods(t *testing.T) {
	d := NewDispatcher()
	d.Register("b", func(ctx context.Context, params json.RawMessage) (any, error) { return nil, nil })
	d.Register("a", func(ctx context.Context, params json.RawMessage) (any, error) { return nil, nil })

	assert.Equal(t, []string{"a", "b"}, d.Methods())
}

func TestDispatcher_ConcurrentCalls(t *testing.T) {
	d := NewDispatcher()
	d.Register("echo", func(ctx context.Context, params json.RawMessage) (any, error) {
		return "ok", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := d.Call(context.Background(), callRequest("1", "echo"))
			assert.Nil(t, resp.Error)
		}()
	}
	wg.Wait()
}
