package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-service/internal/services"
	"github.com/SAP-F-2025/attempt-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewUserHandler(attemptService services.AttemptService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// GetMe returns the authenticated user as resolved by the auth middleware
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} SuccessResponse{data=models.User}
// @Failure 401 {object} ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: user})
}

// GetMyPoints returns the caller's reward balance
// @Summary Points balance
// @Tags users
// @Produce json
// @Success 200 {object} SuccessResponse{data=services.PointsBalanceResponse}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/me/points [get]
func (h *UserHandler) GetMyPoints(c *gin.Context) {
	h.LogRequest(c, "Getting points balance")

	userID := h.getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	balance, err := h.attemptService.GetPointsBalance(c.Request.Context(), userID)
	if err != nil {
		h.LogError(c, err, "Failed to get points balance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to get points balance",
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Points balance retrieved successfully",
		Data:    balance,
	})
}
