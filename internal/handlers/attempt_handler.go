package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-service/internal/events"
	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
	"github.com/SAP-F-2025/attempt-service/internal/services"
	"github.com/SAP-F-2025/attempt-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	exportService  services.ExportService
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	exportService services.ExportService,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		exportService:  exportService,
	}
}

// startAttemptBody is the optional body of the start route; the slug comes from the path
type startAttemptBody struct {
	UserID string `json:"user_id"`
}

// submitAttemptBody carries the answers; slug and session id come from the path
type submitAttemptBody struct {
	UserID    string                        `json:"user_id"`
	Answers   map[string]models.AnswerValue `json:"answers"`
	TimeSpent *int                          `json:"time_spent"`
}

// StartAttempt issues a new attempt session
// @Summary Start assessment attempt
// @Description Samples the questions of an assessment and locks them into a new session
// @Tags attempts
// @Accept json
// @Produce json
// @Param slug path string true "Assessment slug"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{slug}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	slug := c.Param("slug")
	h.LogRequest(c, "Starting assessment attempt", "assessment_slug", slug)

	callerID := h.getUserID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	var body startAttemptBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}
	if body.UserID == "" {
		body.UserID = callerID
	}

	req := services.StartAttemptRequest{
		AssessmentSlug: slug,
		UserID:         body.UserID,
	}

	attempt, err := h.attemptService.Start(h.eventContext(c), &req, callerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitAttempt grades a session and consumes it
// @Summary Submit assessment attempt
// @Description Grades the answers of a session; each session can be submitted once
// @Tags attempts
// @Accept json
// @Produce json
// @Param slug path string true "Assessment slug"
// @Param session_id path string true "Session ID"
// @Param attempt body submitAttemptBody true "Answers"
// @Success 200 {object} services.SubmitAttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{slug}/attempts/{session_id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	slug := c.Param("slug")
	sessionID := c.Param("session_id")
	h.LogRequest(c, "Submitting assessment attempt", "assessment_slug", slug, "session_id", sessionID)

	callerID := h.getUserID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	var body submitAttemptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if body.UserID == "" {
		body.UserID = callerID
	}

	req := services.SubmitAttemptRequest{
		SessionID:      sessionID,
		AssessmentSlug: slug,
		UserID:         body.UserID,
		Answers:        body.Answers,
		TimeSpent:      body.TimeSpent,
	}

	result, err := h.attemptService.Submit(h.eventContext(c), &req, callerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMyAttempts lists the caller's completed attempts
// @Summary List my attempts
// @Tags attempts
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param assessment_id query int false "Filter by assessment"
// @Param passed query bool false "Filter by outcome"
// @Success 200 {object} SuccessResponse{data=services.AttemptHistoryResponse}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /attempts/me [get]
func (h *AttemptHandler) GetMyAttempts(c *gin.Context) {
	h.LogRequest(c, "Listing attempt history")

	userID := h.getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters, err := h.parseRecordFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	history, err := h.attemptService.GetHistory(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt history retrieved successfully",
		Data:    history,
	})
}

// ExportMyAttempts downloads the caller's history as a spreadsheet
// @Summary Export my attempts
// @Tags attempts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /attempts/me/export [get]
func (h *AttemptHandler) ExportMyAttempts(c *gin.Context) {
	h.LogRequest(c, "Exporting attempt history")

	userID := h.getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters, err := h.parseRecordFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	data, err := h.exportService.ExportHistory(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("attempts-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Helper methods

// eventContext carries the request id so published events can be correlated
func (h *AttemptHandler) eventContext(c *gin.Context) context.Context {
	return events.WithCorrelationID(c.Request.Context(), c.GetString("request_id"))
}

func (h *AttemptHandler) parseRecordFilters(c *gin.Context) (repositories.RecordFilters, error) {
	page := max(h.parseIntQuery(c, "page", 1), 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.RecordFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if raw := c.Query("assessment_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filters, fmt.Errorf("invalid assessment_id: %w", err)
		}
		assessmentID := uint(id)
		filters.AssessmentID = &assessmentID
	}

	if raw := c.Query("passed"); raw != "" {
		passed, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, fmt.Errorf("invalid passed: %w", err)
		}
		filters.Passed = &passed
	}

	return filters, nil
}

func (h *AttemptHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied, " + permissionError.Reason,
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
			},
		})
		return
	}

	var attemptError *services.AttemptError
	if errors.As(err, &attemptError) {
		response := ErrorResponse{Message: attemptError.Message}
		if detail := err.Error(); detail != attemptError.Message {
			response.Details = detail
		}
		c.JSON(statusFor(attemptError.Kind), response)
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Bad request",
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Resource conflict",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// statusFor maps an error category onto its HTTP status
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, services.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(kind, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
