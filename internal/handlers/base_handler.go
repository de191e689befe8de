package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edumart/enrollment-service/internal/payment"
	"github.com/edumart/enrollment-service/internal/services"
	"github.com/edumart/enrollment-service/internal/utils"
	"github.com/edumart/enrollment-service/internal/validator"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Message          string                      `json:"message"`
	Details          string                      `json:"details,omitempty"`
	ValidationErrors []validator.ValidationError `json:"validation_errors,omitempty"`
}

// SuccessResponse wraps a payload with a message.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries shared handler plumbing.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs a handler entry with the request id attached.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c.Request.Context()).Info(msg, args...)
}

// parseIDParam parses a uint path parameter. On failure it writes a 400
// response and returns 0; callers must return when they see 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps service sentinels to HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:          "Validation failed",
			ValidationErrors: validationErrs,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrEnrollmentNotFound),
		errors.Is(err, services.ErrCertificateNotFound),
		errors.Is(err, services.ErrUserNotFound):
		status = http.StatusNotFound

	case errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrDuplicateRequest),
		errors.Is(err, services.ErrAlreadyIssued),
		errors.Is(err, services.ErrAlreadyGraded),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrConflict):
		status = http.StatusConflict

	case errors.Is(err, services.ErrPremiumCourse),
		errors.Is(err, services.ErrPaymentDeclined):
		status = http.StatusPaymentRequired

	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden

	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized

	case errors.Is(err, services.ErrCourseUnavailable),
		errors.Is(err, services.ErrEnrollmentNotActive),
		errors.Is(err, services.ErrLessonNotInCourse),
		errors.Is(err, services.ErrAssignmentNotInCourse),
		errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrWeakPassword):
		status = http.StatusUnprocessableEntity

	case errors.Is(err, payment.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		utils.FromContext(c.Request.Context()).Error("Unhandled service error", "error", err)
		c.JSON(status, ErrorResponse{Message: "Internal server error"})
		return
	}

	c.JSON(status, ErrorResponse{Message: err.Error()})
}
