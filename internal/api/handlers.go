// Package api exposes the HTTP surface of the service: the WebSocket
// JSON-RPC endpoint and the health check.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rpcgate/internal/models"
	"rpcgate/internal/observability"
	"rpcgate/internal/rpc"
	"rpcgate/internal/version"
)

// HandlerFactory builds the request-handler chain for one accepted
// connection. Keeping construction per-connection gives every connection
// its own rate-limiter bucket.
type HandlerFactory func() (rpc.Handler, error)

// Handlers contains the HTTP handlers for the rpcgate API.
type Handlers struct {
	newChain     HandlerFactory
	rpcCfg       models.RPCConfig
	batchMetrics *observability.BatchMetrics
}

// NewHandlers creates a new handlers instance. The factory is invoked once
// per accepted WebSocket connection.
func NewHandlers(factory HandlerFactory, rpcCfg models.RPCConfig) (*Handlers, error) {
	batchMetrics, err := observability.NewBatchMetrics(rpc.TransportWS)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		newChain:     factory,
		rpcCfg:       rpcCfg,
		batchMetrics: batchMetrics,
	}, nil
}

// HealthCheckResponse is the health endpoint payload.
type HealthCheckResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles liveness probes.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthCheckResponse{
		Status:    "healthy",
		Version:   version.GetInfo().Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; all we can do is log.
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
