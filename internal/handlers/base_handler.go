package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/services"
	"github.com/SAP-F-2025/learning-assessment/internal/utils"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// FinalLockedResponse tells the learner how far they are from the final
type FinalLockedResponse struct {
	Message      string `json:"message"`
	PassedCount  int    `json:"passed_count"`
	FailedCount  int    `json:"failed_count"`
	TotalModules int    `json:"total_modules"`
	Remaining    int    `json:"remaining"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	if _, ok := c.Get("logger"); ok {
		return utils.GetLogger(c)
	}
	return h.logger
}

func (h *BaseHandler) LogRequest(c *gin.Context, message string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	if userID := c.GetString("user_id"); userID != "" {
		args = append(args, "user_id", userID)
	}
	h.requestLogger(c).Info(message, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, args ...any) {
	args = append(args, "error", err, "path", c.FullPath())
	h.requestLogger(c).Error(message, args...)
}

// currentUser returns the authenticated user, writing 401 when missing
func (h *BaseHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return nil, false
	}
	return user, true
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// handleServiceError maps service errors onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var (
		validationErrs services.ValidationErrors
		lockedErr      *services.FinalLockedError
		upstreamErr    *services.UpstreamError
		permissionErr  *services.PermissionError
	)

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.As(err, &lockedErr):
		c.JSON(http.StatusForbidden, FinalLockedResponse{
			Message:      "Final exam is locked until every module is passed",
			PassedCount:  lockedErr.PassedCount,
			FailedCount:  lockedErr.FailedCount,
			TotalModules: lockedErr.TotalModules,
			Remaining:    lockedErr.Remaining(),
		})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: permissionErr.Reason,
		})
	case errors.Is(err, services.ErrInsufficientQuestions):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Not enough active questions to compose the final exam",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Course not found"})
	case errors.Is(err, services.ErrCertificateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Certificate not found"})
	case errors.As(err, &upstreamErr):
		h.LogError(c, err, "Upstream dependency failed", "collaborator", upstreamErr.Collaborator)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: upstreamErr.Collaborator + " unavailable",
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
