package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/feedwell/feeder-core/internal/auth"
	"github.com/feedwell/feeder-core/internal/conn"
	"github.com/feedwell/feeder-core/internal/record"
)

// upgrader configures the WebSocket upgrade for device channels.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Feeder hardware has no browser origin; rely on the device token.
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleChannel upgrades a device connection and registers it for the
// requested channel kind. Authentication uses the device JWT, taken
// from the token query parameter (embedded clients often cannot set
// headers during the upgrade) or the Authorization header.
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	kind, err := conn.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeNotFound(w, "unknown channel kind")
		return
	}
	deviceID := chi.URLParam(r, "deviceID")

	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	claims, err := s.tokens.ParseRole(token, auth.TokenRoleDevice)
	if err != nil {
		writeUnauthorized(w, "invalid device token")
		return
	}

	f, err := s.feeders.Info(r.Context(), deviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// The token subject is the feeder's internal ID; a token for one
	// feeder cannot register channels for another.
	if f.ID != claims.Subject {
		writeForbidden(w, "token does not match device")
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn("channel upgrade failed", "device_id", deviceID, "kind", kind, "error", err)
		return
	}

	writeTimeout := time.Duration(s.chanCfg.WriteTimeout) * time.Second
	sock := conn.NewSocket(wsConn, writeTimeout)
	s.registry.Register(r.Context(), deviceID, kind, sock)

	s.readPump(wsConn, sock, deviceID, kind)
}

// readPump consumes frames from a device channel until the connection
// drops. Any inbound traffic, including pongs, marks the channel alive
// for the heartbeat monitor. Control frames carry device commands.
// Video and audio frames keep the channel alive and are otherwise
// discarded; no viewer transport consumes them.
func (s *Server) readPump(wsConn *websocket.Conn, sock conn.Socket, deviceID string, kind conn.Kind) {
	defer func() {
		_ = sock.Close()
		s.registry.Deregister(deviceID, kind, sock)
	}()

	wsConn.SetReadLimit(int64(s.chanCfg.MaxMessageSize))

	// Allow three missed heartbeat intervals before the read side
	// gives up on its own; the heartbeat monitor usually evicts first.
	deadline := 3 * time.Duration(s.chanCfg.HeartbeatInterval) * time.Second
	_ = wsConn.SetReadDeadline(time.Now().Add(deadline))
	wsConn.SetPongHandler(func(string) error {
		s.registry.MarkAlive(deviceID, kind, sock)
		return wsConn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, payload, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("channel read error", "device_id", deviceID, "kind", kind, "error", err)
			}
			return
		}

		s.registry.MarkAlive(deviceID, kind, sock)
		_ = wsConn.SetReadDeadline(time.Now().Add(deadline))

		if kind == conn.KindControl {
			s.handleDeviceFrame(deviceID, payload)
		}
	}
}

// handleDeviceFrame decodes and applies one control frame from a
// device. Failures are logged and never terminate the connection; a
// feeder with a buggy firmware revision should stay reachable.
func (s *Server) handleDeviceFrame(deviceID string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), deviceCommandTimeout)
	defer cancel()

	cmd, err := conn.DecodeDeviceCommand(payload)
	if err != nil {
		s.logger.Warn("undecodable device frame", "device_id", deviceID, "error", err)
		return
	}

	switch c := cmd.(type) {
	case conn.SetScheduleStatus:
		status, err := record.ParseMealStatus(c.Status)
		if err != nil {
			s.logger.Warn("device reported invalid meal status",
				"device_id", deviceID, "status", c.Status)
			return
		}
		if _, err := s.records.SetMealStatus(ctx, deviceID, c.ScheduleID, status, c.CaloriesConsumed, c.SkipReason); err != nil {
			s.logger.Warn("meal status update failed",
				"device_id", deviceID, "schedule_id", c.ScheduleID, "error", err)
		}

	case conn.SetDepositStatus:
		if err := s.feeders.ReportDeposit(ctx, deviceID, c.Level); err != nil {
			s.logger.Warn("deposit update failed", "device_id", deviceID, "error", err)
		}

	case conn.SetCatPresence:
		if err := s.feeders.ReportPresence(ctx, deviceID, c.Present); err != nil {
			s.logger.Warn("presence update failed", "device_id", deviceID, "error", err)
		}

	case conn.NewDailyRecord:
		if err := s.records.EnsureDailyRecord(ctx, deviceID); err != nil {
			s.logger.Warn("daily record creation failed", "device_id", deviceID, "error", err)
		}
	}
}

// deviceCommandTimeout bounds the handling of one device frame.
const deviceCommandTimeout = 10 * time.Second
