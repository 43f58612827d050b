package rpc

import (
	"context"
	"encoding/json"

	"rpcgate/internal/version"
)

// RegisterSystemMethods installs the built-in introspection methods on the
// dispatcher.
func RegisterSystemMethods(d *Dispatcher) {
	d.Register("system_health", func(ctx context.Context, params json.RawMessage) (any, error) {
		return map[string]string{"status": "healthy"}, nil
	})

	d.Register("system_version", func(ctx context.Context, params json.RawMessage) (any, error) {
		return version.GetInfo(), nil
	})

	d.Register("system_methods", func(ctx context.Context, params json.RawMessage) (any, error) {
		return d.Methods(), nil
	})
}
