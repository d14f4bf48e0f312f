package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/socket-test", s.handleSocketTest)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Car API
	s.echo.POST("/api/car_join", s.handleCarJoin)
	s.echo.POST("/api/car_update_location", s.handleCarUpdateLocation)
	s.echo.GET("/api/car_locations", s.handleCarLocations)
	s.echo.POST("/api/car_remove", s.handleCarRemove)

	// Push channel
	s.echo.GET("/ws", s.handleWebSocket)
}
