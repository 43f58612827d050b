package ratelimit

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rpcgate/internal/jsonrpc"
	"rpcgate/internal/rpc"
)

// LimitMiddleware enforces an optional requests-per-minute quota in front
// of an inner rpc.Handler. It implements rpc.Handler itself, so it slots in
// wherever the inner handler would. Denied requests are answered with a
// 429 "Too many requests" error carrying the original request id; the
// inner handler is never invoked for them. The middleware keeps no
// per-request state and is safe for concurrent calls.
type LimitMiddleware struct {
	inner       rpc.Handler
	limiter     *Limiter // nil means no limiting
	transport   rpc.Transport
	rateLimited metric.Int64Counter
	attrs       metric.MeasurementOption
}

// NewLimitMiddleware wraps inner with a rate gate. requestsPerMinute nil
// disables limiting entirely; a pointer to zero or a negative value is a
// configuration error. Each middleware instance owns its limiter, so two
// instances built from the same rate share no bucket state.
func NewLimitMiddleware(inner rpc.Handler, transport rpc.Transport, requestsPerMinute *int) (*LimitMiddleware, error) {
	var limiter *Limiter
	if requestsPerMinute != nil {
		l, err := NewLimiter(*requestsPerMinute)
		if err != nil {
			return nil, err
		}
		limiter = l
	}

	// Instrument creation is idempotent for a given meter and name, so
	// per-connection construction never trips duplicate registration.
	meter := otel.Meter("rpcgate/ratelimit")
	rateLimited, err := meter.Int64Counter(
		"api.jsonrpc.backend.batch.rate_limited",
		metric.WithDescription("Number of rate-limited requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &LimitMiddleware{
		inner:       inner,
		limiter:     limiter,
		transport:   transport,
		rateLimited: rateLimited,
		attrs:       metric.WithAttributes(attribute.String("transport", string(transport))),
	}, nil
}

// Call admits or denies a single request. Admission consumes one token and
// is irrevocable; abandoning the call does not credit the bucket. Batches
// are unpacked upstream, so exactly one token is consumed per request.
func (m *LimitMiddleware) Call(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if m.limiter != nil && !m.limiter.Allow() {
		m.rateLimited.Add(ctx, 1, m.attrs)
		return jsonrpc.ErrorResponse(req.ID, jsonrpc.ErrTooManyRequests)
	}
	return m.inner.Call(ctx, req)
}
