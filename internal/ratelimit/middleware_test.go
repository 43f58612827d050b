package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"rpcgate/internal/jsonrpc"
	"rpcgate/internal/rpc"
)

// setupMeter installs a MeterProvider backed by a manual reader so tests
// can assert on recorded counter values.
func setupMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })
	return reader
}

// rateLimitedCount collects and sums the rate_limited counter for the ws
// transport.
func rateLimitedCount(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "api.jsonrpc.backend.batch.rate_limited" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "rate_limited should be a sum")
			for _, dp := range sum.DataPoints {
				v, ok := dp.Attributes.Value(attribute.Key("transport"))
				require.True(t, ok)
				assert.Equal(t, "ws", v.AsString())
				total += dp.Value
			}
		}
	}
	return total
}

func okInner() rpc.Handler {
	return rpc.HandlerFunc(func(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
		resp, _ := jsonrpc.ResultResponse(req.ID, map[string]bool{"ok": true})
		return resp
	})
}

// boundedInner panics when invoked more than maxCalls times.
func boundedInner(maxCalls int64) rpc.Handler {
	var calls atomic.Int64
	return rpc.HandlerFunc(func(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
		if calls.Add(1) > maxCalls {
			panic("inner handler invoked for a denied request")
		}
		resp, _ := jsonrpc.ResultResponse(req.ID, map[string]bool{"ok": true})
		return resp
	})
}

func intPtr(n int) *int { return &n }

func TestNewLimitMiddleware_ZeroLimitFails(t *testing.T) {
	setupMeter(t)

	_, err := NewLimitMiddleware(okInner(), rpc.TransportWS, intPtr(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLimitMiddleware_NoLimitPassesThrough(t *testing.T) {
	reader := setupMeter(t)

	inner := okInner()
	mw, err := NewLimitMiddleware(inner, rpc.TransportWS, nil)
	require.NoError(t, err)

	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`7`), Method: "echo"}
	resp := mw.Call(context.Background(), req)

	assert.Equal(t, inner.Call(context.Background(), req), resp)
	assert.Equal(t, int64(0), rateLimitedCount(t, reader))
}

func TestLimitMiddleware_DeniesPastCapacity(t *testing.T) {
	reader := setupMeter(t)

	mw, err := NewLimitMiddleware(boundedInner(1), rpc.TransportWS, intPtr(1))
	require.NoError(t, err)

	first := mw.Call(context.Background(),
		&jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`1`), Method: "echo"})
	require.Nil(t, first.Error)

	// Second request inside the window: denied, inner handler untouched
	// (boundedInner panics on a second invocation).
	second := mw.Call(context.Background(),
		&jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`2`), Method: "echo"})
	require.NotNil(t, second.Error)
	assert.Equal(t, jsonrpc.CodeTooManyRequests, second.Error.Code)
	assert.Equal(t, "Too many requests", second.Error.Message)
	assert.Nil(t, second.Error.Data)
	assert.JSONEq(t, `2`, string(second.ID))

	assert.Equal(t, int64(1), rateLimitedCount(t, reader))
}

func TestLimitMiddleware_PreservesStringID(t *testing.T) {
	setupMeter(t)

	mw, err := NewLimitMiddleware(boundedInner(1), rpc.TransportWS, intPtr(1))
	require.NoError(t, err)

	mw.Call(context.Background(),
		&jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`"first"`), Method: "echo"})

	denied := mw.Call(context.Background(),
		&jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`"abc"`), Method: "echo"})
	require.NotNil(t, denied.Error)
	assert.JSONEq(t, `"abc"`, string(denied.ID))
}

func TestLimitMiddleware_InnerErrorPassesThrough(t *testing.T) {
	setupMeter(t)

	inner := rpc.HandlerFunc(func(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
		return jsonrpc.ErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "bad params"))
	})

	mw, err := NewLimitMiddleware(inner, rpc.TransportWS, intPtr(10))
	require.NoError(t, err)

	resp := mw.Call(context.Background(),
		&jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`1`), Method: "echo"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
}

func TestLimitMiddleware_ConcurrentCallers(t *testing.T) {
	const limit = 2
	const callers = 10

	reader := setupMeter(t)

	mw, err := NewLimitMiddleware(boundedInner(limit), rpc.TransportWS, intPtr(limit))
	require.NoError(t, err)

	var admitted, denied atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := json.RawMessage(fmt.Sprintf("%d", n))
			resp := mw.Call(context.Background(),
				&jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: id, Method: "echo"})
			if resp.Error == nil {
				admitted.Add(1)
				return
			}
			denied.Add(1)
			assert.Equal(t, jsonrpc.CodeTooManyRequests, resp.Error.Code)
			// Each denial echoes that caller's own id.
			assert.JSONEq(t, string(id), string(resp.ID))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
	assert.Equal(t, int64(callers-limit), denied.Load())
	assert.Equal(t, int64(callers-limit), rateLimitedCount(t, reader))
}

func TestLimitMiddleware_InstancesShareNoBucketState(t *testing.T) {
	setupMeter(t)

	a, err := NewLimitMiddleware(okInner(), rpc.TransportWS, intPtr(1))
	require.NoError(t, err)
	b, err := NewLimitMiddleware(okInner(), rpc.TransportWS, intPtr(1))
	require.NoError(t, err)

	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: json.RawMessage(`1`), Method: "echo"}
	require.Nil(t, a.Call(context.Background(), req).Error)
	require.NotNil(t, a.Call(context.Background(), req).Error)

	// b has its own bucket and is unaffected by a's exhaustion.
	assert.Nil(t, b.Call(context.Background(), req).Error)
}
