package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Car clients connect from arbitrary origins
	},
}

// inboundFrame mirrors hub.Frame for client-to-server messages.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// handleWebSocket upgrades the connection, registers it with the hub, and
// pumps inbound events until the client disconnects. Unregistering triggers
// the disconnect reconciler via the hub's close callback.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	socketID, err := s.hub.Register(conn)
	if err != nil {
		slog.Warn("Failed to register socket", "error", err)
		_ = conn.Close()
		return nil
	}

	s.hub.Send(socketID, "connected", map[string]any{
		"socketId":  socketID,
		"message":   "Connected to car tracking server",
		"timestamp": s.timestamp(),
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatchSocketEvent(socketID, msg)
	}

	s.hub.Unregister(socketID)

	return nil
}

func (s *Server) dispatchSocketEvent(socketID string, msg []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		slog.Debug("Ignoring malformed socket frame", "socket_id", socketID, "error", err)
		return
	}

	switch frame.Event {
	case "UpdateSocket":
		s.handleUpdateSocketEvent(socketID, frame.Data)
	case "location_update":
		s.handleLocationUpdateEvent(socketID, frame.Data)
	default:
		slog.Debug("Unknown socket event", "socket_id", socketID, "event", frame.Event)
	}
}

// handleUpdateSocketEvent binds the sending socket to a car UUID. Position
// state is untouched; only the reachability binding changes.
func (s *Server) handleUpdateSocketEvent(socketID string, data json.RawMessage) {
	var payload struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.UUID == "" {
		s.hub.Send(socketID, "UpdateSocket", map[string]any{
			"status":    "error",
			"message":   "Invalid data format",
			"timestamp": s.timestamp(),
		})
		return
	}

	s.tracker.BindSocket(payload.UUID, socketID)

	s.hub.Send(socketID, "UpdateSocket", map[string]any{
		"status":    "success",
		"socketId":  socketID,
		"uuid":      payload.UUID,
		"timestamp": s.timestamp(),
	})
}

// handleLocationUpdateEvent relays a raw position to every other socket.
// The registry is deliberately not mutated here; HTTP is the authoritative
// ingress for position state.
func (s *Server) handleLocationUpdateEvent(socketID string, data json.RawMessage) {
	var payload struct {
		UUID      string `json:"uuid"`
		Latitude  any    `json:"latitude"`
		Longitude any    `json:"longitude"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Debug("Ignoring malformed location_update", "socket_id", socketID, "error", err)
		return
	}

	s.hub.Broadcast("location_broadcast", map[string]any{
		"uuid":      payload.UUID,
		"latitude":  payload.Latitude,
		"longitude": payload.Longitude,
		"timestamp": s.timestamp(),
	}, socketID)

	s.hub.Send(socketID, "location_confirmed", map[string]any{
		"status":    "success",
		"timestamp": s.timestamp(),
	})
}
