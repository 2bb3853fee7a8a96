package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/lifeline/internal/domain"
)

// AnalyzeSession scores a transcript.
// POST /api/emergency/analyze
func (h *Handler) AnalyzeSession(c echo.Context) error {
	var req domain.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Success: false, Message: "invalid request body"})
	}
	if req.Messages == nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Success: false, Message: "Messages array is required"})
	}

	analysis, err := h.service.AnalyzeConversation(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(c, err, "Error analyzing session")
	}

	return c.JSON(http.StatusOK, domain.AnalyzeResponse{Success: true, Analysis: analysis})
}

// NotifyContacts alerts the emergency contacts of a person in crisis.
// POST /api/emergency/notify
func (h *Handler) NotifyContacts(c echo.Context) error {
	var req domain.NotifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Success: false, Message: "invalid request body"})
	}

	resp, err := h.service.NotifyContacts(c.Request().Context(), &req)
	if err != nil {
		// Below-threshold transcripts still return their analysis.
		if resp != nil && domain.IsValidation(err) {
			return c.JSON(http.StatusBadRequest, resp)
		}
		return errorResponse(c, err, "Error notifying emergency contacts")
	}

	return c.JSON(http.StatusOK, resp)
}

// GetResources returns crisis hotlines.
// GET /api/emergency/resources
func (h *Handler) GetResources(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Resources())
}

// TestEmergencySystem sends a test SMS.
// POST /api/emergency/test
func (h *Handler) TestEmergencySystem(c echo.Context) error {
	var req domain.TestAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Success: false, Message: "invalid request body"})
	}
	if req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Success: false, Message: "Phone number is required"})
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, err, "Error sending test notification")
	}

	resp, err := h.service.SendTestAlert(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(c, err, "Error sending test notification")
	}

	return c.JSON(http.StatusOK, resp)
}

// GetReport returns a stored notification report.
// GET /api/emergency/reports/:report_id
func (h *Handler) GetReport(c echo.Context) error {
	report, err := h.service.GetReport(c.Request().Context(), c.Param("report_id"))
	if err != nil {
		return errorResponse(c, err, "report not found")
	}
	return c.JSON(http.StatusOK, report)
}

// GetCall returns a stored call and its callback history.
// GET /api/emergency/calls/:call_id
func (h *Handler) GetCall(c echo.Context) error {
	detail, err := h.service.GetCall(c.Request().Context(), c.Param("call_id"))
	if err != nil {
		return errorResponse(c, err, "call not found")
	}
	return c.JSON(http.StatusOK, detail)
}
