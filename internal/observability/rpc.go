package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rpcgate/internal/jsonrpc"
	"rpcgate/internal/rpc"
)

// batchSizeBoundaries are the exponential histogram buckets for batch
// sizes: 1, 2, 4, ..., 512.
var batchSizeBoundaries = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512}

// BatchMetrics records batch-level measurements taken by the transport
// layer while unpacking inbound frames, before requests reach the rate
// gate: the size of each batch and the number of batches rejected for
// exceeding the configured size cap.
type BatchMetrics struct {
	size     metric.Int64Histogram
	rejected metric.Int64Counter
	attrs    metric.MeasurementOption
}

// NewBatchMetrics creates the batch instruments for one transport.
// Creation is idempotent for a given meter and instrument name.
func NewBatchMetrics(transport rpc.Transport) (*BatchMetrics, error) {
	meter := otel.Meter("rpcgate/rpc")

	size, err := meter.Int64Histogram(
		"api.jsonrpc.backend.batch.size",
		metric.WithDescription("Size of batch requests"),
		metric.WithUnit("{request}"),
		metric.WithExplicitBucketBoundaries(batchSizeBoundaries...),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter(
		"api.jsonrpc.backend.batch.rejected",
		metric.WithDescription("Number of requests rejected by the limiter"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	return &BatchMetrics{
		size:     size,
		rejected: rejected,
		attrs:    metric.WithAttributes(attribute.String("transport", string(transport))),
	}, nil
}

// ObserveSize records the number of requests in an inbound batch.
func (m *BatchMetrics) ObserveSize(ctx context.Context, n int) {
	m.size.Record(ctx, int64(n), m.attrs)
}

// RecordRejected counts a batch turned away for exceeding the size cap.
func (m *BatchMetrics) RecordRejected(ctx context.Context) {
	m.rejected.Add(ctx, 1, m.attrs)
}

// InstrumentedHandler wraps an rpc.Handler with OpenTelemetry tracing and
// metrics instrumentation. It records a span, a latency histogram, and an
// error counter for every call.
type InstrumentedHandler struct {
	inner    rpc.Handler
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedHandler creates a handler wrapper that records trace
// spans, call latency histograms, and error counters for every dispatched
// request.
func NewInstrumentedHandler(inner rpc.Handler) (*InstrumentedHandler, error) {
	tracer := otel.Tracer("rpcgate/rpc")
	meter := otel.Meter("rpcgate/rpc")

	duration, err := meter.Float64Histogram(
		"rpc.call.duration",
		metric.WithDescription("Duration of RPC method calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"rpc.call.errors",
		metric.WithDescription("Number of RPC calls answered with an error object"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedHandler{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

// Call dispatches to the inner handler inside a span named after the
// method. The response itself passes through untouched.
func (h *InstrumentedHandler) Call(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	ctx, span := h.tracer.Start(ctx, "rpc."+req.Method,
		trace.WithAttributes(attribute.String("rpc.method", req.Method)),
	)
	start := time.Now()

	resp := h.inner.Call(ctx, req)

	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("method", req.Method))
	h.duration.Record(ctx, elapsed, attrs)

	if resp != nil && resp.Error != nil {
		h.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.Int("code", resp.Error.Code),
		))
		span.SetStatus(codes.Error, fmt.Sprintf("rpc error %d", resp.Error.Code))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	return resp
}
