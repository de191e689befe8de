package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/services"
	"github.com/edumart/enrollment-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
	exportService     services.ExportService
}

func NewEnrollmentHandler(
	enrollmentService services.EnrollmentService,
	exportService services.ExportService,
	logger utils.Logger,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
		exportService:     exportService,
	}
}

// Enroll enrolls the authenticated student into a free course
// @Summary Enroll in a free course
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body services.EnrollRequest true "Enrollment data"
// @Success 201 {object} services.EnrollmentResponse
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req services.EnrollRequest
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

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), studentID, req.CourseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// EnrollWithPayment enrolls the authenticated student into a premium course
// @Summary Enroll in a premium course
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body services.EnrollWithPaymentRequest true "Enrollment and payment data"
// @Success 201 {object} services.EnrollmentResponse
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments/pay [post]
func (h *EnrollmentHandler) EnrollWithPayment(c *gin.Context) {
	var req services.EnrollWithPaymentRequest
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

	enrollment, err := h.enrollmentService.EnrollWithPayment(c.Request.Context(), studentID, req.CourseID, req.PaymentDetails)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// SignupAndEnroll creates an account and enrolls it in one call
// @Summary Sign up and enroll
// @Tags enrollments
// @Accept json
// @Produce json
// @Param signup body services.SignupAndEnrollRequest true "Profile, course and optional payment data"
// @Success 201 {object} services.SignupAndEnrollResponse
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments/signup [post]
func (h *EnrollmentHandler) SignupAndEnroll(c *gin.Context) {
	var req services.SignupAndEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	response, err := h.enrollmentService.SignupAndEnroll(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListEnrollments lists the authenticated student's enrollments
// @Summary List own enrollments
// @Tags enrollments
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.EnrollmentListResponse
// @Router /enrollments [get]
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := parseEnrollmentFilters(c)
	enrollments, err := h.enrollmentService.List(c.Request.Context(), studentID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// Drop drops an active enrollment
// @Summary Drop an enrollment
// @Tags enrollments
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} services.EnrollmentResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Dropping enrollment", "enrollment_id", id)

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	enrollment, err := h.enrollmentService.Drop(c.Request.Context(), studentID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// ExportRoster streams the course roster as an xlsx workbook
// @Summary Export course roster
// @Tags courses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Course ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/roster/export [get]
func (h *EnrollmentHandler) ExportRoster(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting course roster", "course_id", id)

	instructorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	file, err := h.exportService.ExportCourseRoster(c.Request.Context(), instructorID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("roster_course_%d.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		utils.FromContext(c.Request.Context()).Error("Failed to write roster export", "error", err)
	}
}

func parseEnrollmentFilters(c *gin.Context) repositories.EnrollmentFilters {
	filters := repositories.EnrollmentFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		enrollmentStatus := models.EnrollmentStatus(status)
		filters.Status = &enrollmentStatus
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}
	return filters
}
