package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rpcgate/internal/jsonrpc"
	"rpcgate/internal/models"
	"rpcgate/internal/observability"
	"rpcgate/internal/rpc"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks belong to the reverse proxy in front of this service.
		return true
	},
}

// ServeWS upgrades the connection and runs the JSON-RPC session until the
// peer disconnects.
// GET /ws
func (h *Handlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		slog.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	chain, err := h.newChain()
	if err != nil {
		slog.Error("Failed to build connection handler chain", "error", err)
		conn.Close()
		return
	}

	s := &session{
		conn:    conn,
		handler: chain,
		cfg:     h.rpcCfg,
		metrics: h.batchMetrics,
		log: slog.With(
			"conn_id", uuid.New().String(),
			"remote_addr", r.RemoteAddr,
		),
	}
	s.run(r.Context())
}

// session is the read loop for one WebSocket connection. The handler chain
// (including the connection's rate gate) is fixed for the session's
// lifetime.
type session struct {
	conn    *websocket.Conn
	handler rpc.Handler
	cfg     models.RPCConfig
	metrics *observability.BatchMetrics
	log     *slog.Logger
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.pingLoop(stop)

	s.log.Debug("WebSocket session started")

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("WebSocket read failed", "error", err)
			} else {
				s.log.Debug("WebSocket session closed")
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		reply := s.handleFrame(ctx, data)
		if reply == nil {
			// Notification-only frame; nothing to send back.
			continue
		}

		s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := s.conn.WriteJSON(reply); err != nil {
			s.log.Warn("WebSocket write failed", "error", err)
			return
		}
	}
}

// handleFrame decodes a frame, applies the batch size cap, and runs every
// request through the connection's handler chain. The return value is a
// single response, a slice of responses mirroring a batch, or nil when no
// response is due.
func (s *session) handleFrame(ctx context.Context, data []byte) any {
	reqs, batch, err := jsonrpc.ParseMessage(data)
	if err != nil {
		if errors.Is(err, jsonrpc.ErrEmptyBatch) {
			return jsonrpc.ErrorResponse(nil, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "Invalid request"))
		}
		return jsonrpc.ErrorResponse(nil, jsonrpc.NewError(jsonrpc.CodeParseError, "Parse error"))
	}

	// Single requests count as batches of one.
	s.metrics.ObserveSize(ctx, len(reqs))

	if batch && s.cfg.MaxBatchSize > 0 && len(reqs) > s.cfg.MaxBatchSize {
		s.metrics.RecordRejected(ctx)
		s.log.Warn("Batch rejected", "size", len(reqs), "max", s.cfg.MaxBatchSize)
		return jsonrpc.ErrorResponse(nil, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "Batch size limit exceeded"))
	}

	if !batch {
		req := reqs[0]
		resp := s.handler.Call(ctx, req)
		if req.IsNotification() {
			return nil
		}
		return resp
	}

	responses := make([]*jsonrpc.Response, 0, len(reqs))
	for _, req := range reqs {
		resp := s.handler.Call(ctx, req)
		if req.IsNotification() {
			continue
		}
		responses = append(responses, resp)
	}
	if len(responses) == 0 {
		return nil
	}
	return responses
}

// pingLoop keeps the connection alive; the pong handler extends the read
// deadline.
func (s *session) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
