// Package http assembles the HTTP server of the lifeline service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaot623/lifeline/internal/config"
	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/hub"
	"github.com/xiaot623/lifeline/internal/service"
	v1 "github.com/xiaot623/lifeline/internal/transport/http/v1"
	"github.com/xiaot623/lifeline/internal/transport/ws"
)

// NewServer creates and configures the HTTP server. It serves the emergency
// API, provider webhooks, audio artifacts, the call watch feed and metrics.
func NewServer(svc *service.Service, cfg *config.Config, audio v1.AudioFiles, h *hub.Hub, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = domain.Validator{}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, cfg, audio)
	watchServer := ws.NewServer(h, cfg.WSPingInterval, cfg.WSWriteTimeout)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	watchServer.RegisterRoutes(e)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return e
}
