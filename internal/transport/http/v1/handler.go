// Package v1 provides the HTTP handlers of the emergency API.
package v1

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/lifeline/internal/adapter/telephony"
	"github.com/xiaot623/lifeline/internal/config"
	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/service"
)

// AdminKeyHeader carries the operator key for admin-only routes.
const AdminKeyHeader = "X-Admin-Key"

// AudioFiles resolves served audio artifact names.
type AudioFiles interface {
	Path(name string) (string, error)
}

// Handler handles HTTP requests.
type Handler struct {
	service   *service.Service
	cfg       *config.Config
	audio     AudioFiles
	signature *telephony.SignatureValidator
}

// NewHandler creates a new handler. audio may be nil when no artifacts are
// served.
func NewHandler(svc *service.Service, cfg *config.Config, audio AudioFiles) *Handler {
	h := &Handler{
		service: svc,
		cfg:     cfg,
		audio:   audio,
	}
	if cfg.TwilioValidateWebhook && cfg.TwilioAuthToken != "" {
		h.signature = telephony.NewSignatureValidator(cfg.TwilioAuthToken)
	}
	return h
}

// RegisterRoutes registers the emergency routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/emergency")

	// Public
	g.GET("/resources", h.GetResources)

	// Provider webhooks
	g.POST("/call-response", h.HandleCallResponse, h.verifyProvider)
	g.POST("/call-status", h.HandleCallStatus, h.verifyProvider)

	// Client API
	g.POST("/analyze", h.AnalyzeSession)
	g.POST("/notify", h.NotifyContacts)
	g.GET("/reports/:report_id", h.GetReport)
	g.GET("/calls/:call_id", h.GetCall)

	// Operators
	g.POST("/test", h.TestEmergencySystem, h.requireAdmin)

	e.GET("/audio/:name", h.ServeAudio)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// requireAdmin rejects requests without the configured admin key. With no key
// configured the route is closed.
func (h *Handler) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(AdminKeyHeader)
		if h.cfg.AdminAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.AdminAPIKey)) != 1 {
			return c.JSON(http.StatusForbidden, domain.ErrorResponse{
				Success: false,
				Message: "Not authorized to access this route",
			})
		}
		return next(c)
	}
}

// errorResponse maps service errors onto status codes. fallback is the
// message shown for unexpected failures.
func errorResponse(c echo.Context, err error, fallback string) error {
	var cfgErr *domain.ConfigurationError
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Success: false, Message: err.Error()})
	case errors.As(err, &cfgErr):
		log.Printf("ERROR: %s: %v", fallback, err)
		return c.JSON(http.StatusServiceUnavailable, domain.ErrorResponse{Success: false, Message: fallback, Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Success: false, Message: fallback})
	default:
		log.Printf("ERROR: %s: %v", fallback, err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Success: false, Message: fallback, Error: err.Error()})
	}
}
