package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/services"
	"github.com/edumart/enrollment-service/internal/utils"
)

type CertificateHandler struct {
	BaseHandler
	certificateService services.CertificateService
}

func NewCertificateHandler(certificateService services.CertificateService, logger utils.Logger) *CertificateHandler {
	return &CertificateHandler{
		BaseHandler:        NewBaseHandler(logger),
		certificateService: certificateService,
	}
}

// Request opens a certificate review request
// @Summary Request a certificate
// @Tags certificates
// @Accept json
// @Produce json
// @Param request body services.CertificateRequestRequest true "Request data"
// @Success 201 {object} services.CertificateRequestResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /certificates/request [post]
func (h *CertificateHandler) Request(c *gin.Context) {
	var req services.CertificateRequestRequest
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

	request, err := h.certificateService.Request(c.Request.Context(), studentID, req.EnrollmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// Issue approves a pending certificate request
// @Summary Issue a certificate
// @Tags certificates
// @Produce json
// @Param id path uint true "Request ID"
// @Success 200 {object} services.CertificateRequestResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /certificates/{id}/issue [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Issuing certificate", "request_id", id)

	instructorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	request, err := h.certificateService.Issue(c.Request.Context(), instructorID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Reject declines a pending certificate request
// @Summary Reject a certificate request
// @Tags certificates
// @Produce json
// @Param id path uint true "Request ID"
// @Success 200 {object} services.CertificateRequestResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /certificates/{id}/reject [post]
func (h *CertificateHandler) Reject(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Rejecting certificate request", "request_id", id)

	instructorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	request, err := h.certificateService.Reject(c.Request.Context(), instructorID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Verify resolves a public verification code to a certificate summary
// @Summary Verify a certificate
// @Tags certificates
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} services.CertificateSummary
// @Failure 404 {object} ErrorResponse
// @Router /certificates/verify/{code} [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Verification code required"})
		return
	}

	summary, err := h.certificateService.Verify(c.Request.Context(), code)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListRequests lists certificate requests against the instructor's courses
// @Summary List certificate requests
// @Tags certificates
// @Produce json
// @Param status query string false "Filter by status"
// @Param course_id query uint false "Filter by course"
// @Success 200 {object} services.CertificateRequestListResponse
// @Router /certificates/requests [get]
func (h *CertificateHandler) ListRequests(c *gin.Context) {
	instructorID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := parseCertificateFilters(c)
	requests, err := h.certificateService.ListRequests(c.Request.Context(), instructorID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

func parseCertificateFilters(c *gin.Context) repositories.CertificateRequestFilters {
	filters := repositories.CertificateRequestFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		requestStatus := models.CertificateRequestStatus(status)
		filters.Status = &requestStatus
	}
	if courseID, err := strconv.ParseUint(c.Query("course_id"), 10, 32); err == nil {
		id := uint(courseID)
		filters.CourseID = &id
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}
	return filters
}
