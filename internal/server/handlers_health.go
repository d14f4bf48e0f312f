package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleRoot(c echo.Context) error {
	response := map[string]any{
		"message":   "Car tracking backend is running",
		"timestamp": s.timestamp(),
		"port":      s.config.Port,
		"websocket": "enabled",
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write root response: %w", err)
	}
	return nil
}

func (s *Server) handleSocketTest(c echo.Context) error {
	response := map[string]any{
		"message":          "WebSocket hub is configured",
		"connectedClients": s.hub.ClientCount(),
		"timestamp":        s.timestamp(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write socket-test response: %w", err)
	}
	return nil
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Now().Sub(s.startTime).Seconds()

	response := map[string]any{
		"status": "ok",
		"uptime": uptime,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// handleReadiness reports ready as long as the hub actor responds. All state
// is in-memory; there are no external dependencies to probe.
func (s *Server) handleReadiness(c echo.Context) error {
	if s.hub.ClientCount() < 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}
