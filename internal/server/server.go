// Package server exposes the HTTP and websocket boundary: the REST car API,
// the push-channel upgrade endpoint, and the observability routes.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stationhub/cartrack/internal/config"
	apperrors "github.com/stationhub/cartrack/internal/errors"
	"github.com/stationhub/cartrack/internal/hub"
	"github.com/stationhub/cartrack/internal/tracker"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	tracker   *tracker.Service
	hub       *hub.Hub
	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Config, trk *tracker.Service, h *hub.Hub, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		tracker:   trk,
		hub:       h,
		clock:     clock,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) timestamp() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}
