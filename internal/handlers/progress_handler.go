package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumart/enrollment-service/internal/services"
	"github.com/edumart/enrollment-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// RecordLessonComplete marks a lesson complete for the caller's enrollment
// @Summary Record lesson completion
// @Tags progress
// @Accept json
// @Produce json
// @Param completion body services.RecordLessonRequest true "Lesson completion data"
// @Success 200 {object} services.EnrollmentResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /progress/lesson [post]
func (h *ProgressHandler) RecordLessonComplete(c *gin.Context) {
	var req services.RecordLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	enrollment, err := h.progressService.RecordLessonComplete(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// RecordAssignmentGraded records a one-time grade for a submission
// @Summary Record assignment grade
// @Tags progress
// @Accept json
// @Produce json
// @Param grade body services.RecordAssignmentGradeRequest true "Grade data"
// @Success 200 {object} services.EnrollmentResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /progress/assignment [post]
func (h *ProgressHandler) RecordAssignmentGraded(c *gin.Context) {
	var req services.RecordAssignmentGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	graderID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	enrollment, err := h.progressService.RecordAssignmentGraded(c.Request.Context(), graderID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// GetProgress returns the derived progress breakdown for an enrollment
// @Summary Get enrollment progress
// @Tags progress
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} services.ProgressResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{id}/progress [get]
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	callerID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	progress, err := h.progressService.GetProgress(c.Request.Context(), callerID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
