package v1

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/lifeline/internal/adapter/telephony"
	"github.com/xiaot623/lifeline/internal/audio"
	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/observability"
)

// HandleCallResponse answers a key press during a call with TwiML.
// POST /api/emergency/call-response
func (h *Handler) HandleCallResponse(c echo.Context) error {
	var cb domain.DigitCallback
	if err := c.Bind(&cb); err != nil {
		return c.String(http.StatusBadRequest, "invalid callback")
	}

	doc, err := h.service.HandleCallDigits(c.Request().Context(), &cb)
	if err != nil {
		log.Printf("ERROR: failed to render call response for %s: %v", cb.CallSid, err)
		return c.String(http.StatusInternalServerError, "failed to render response")
	}
	return c.Blob(http.StatusOK, echo.MIMETextXML, []byte(doc))
}

// HandleCallStatus records a call lifecycle update. The provider always gets
// OK; rejected updates are only logged.
// POST /api/emergency/call-status
func (h *Handler) HandleCallStatus(c echo.Context) error {
	var cb domain.StatusCallback
	if err := c.Bind(&cb); err != nil {
		return c.String(http.StatusBadRequest, "invalid callback")
	}

	h.service.HandleCallStatus(c.Request().Context(), &cb)
	return c.String(http.StatusOK, "OK")
}

// verifyProvider checks the provider signature of webhook requests when
// validation is enabled.
func (h *Handler) verifyProvider(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.signature == nil {
			return next(c)
		}

		form, err := c.FormParams()
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid callback")
		}
		params := make(map[string]string, len(form))
		for k, v := range form {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		url := h.cfg.PublicBaseURL + c.Request().URL.RequestURI()
		sig := c.Request().Header.Get(telephony.SignatureHeader)
		if !h.signature.Valid(url, params, sig) {
			log.Printf("WARN: rejected unsigned webhook %s", c.Path())
			h.service.Metrics().RecordRejected(observability.ReasonBadSignature)
			return c.String(http.StatusForbidden, "invalid signature")
		}
		return next(c)
	}
}

// ServeAudio streams a synthesized artifact to the provider.
// GET /audio/:name
func (h *Handler) ServeAudio(c echo.Context) error {
	if h.audio == nil {
		return c.NoContent(http.StatusNotFound)
	}
	path, err := h.audio.Path(c.Param("name"))
	if err != nil {
		if errors.Is(err, audio.ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
			return c.NoContent(http.StatusNotFound)
		}
		log.Printf("ERROR: failed to resolve audio %s: %v", c.Param("name"), err)
		return c.NoContent(http.StatusInternalServerError)
	}
	c.Response().Header().Set(echo.HeaderContentType, "audio/mpeg")
	return c.File(path)
}
