package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/edumart/enrollment-service/internal/auth"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/services"
	"github.com/edumart/enrollment-service/internal/utils"
)

type HandlerManager struct {
	authHandler        *AuthHandler
	enrollmentHandler  *EnrollmentHandler
	progressHandler    *ProgressHandler
	certificateHandler *CertificateHandler
	authMiddleware     *AuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	tokens *auth.TokenManager,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:        NewAuthHandler(serviceManager.Auth(), logger),
		enrollmentHandler:  NewEnrollmentHandler(serviceManager.Enrollment(), serviceManager.Export(), logger),
		progressHandler:    NewProgressHandler(serviceManager.Progress(), logger),
		certificateHandler: NewCertificateHandler(serviceManager.Certificate(), logger),
		authMiddleware:     NewAuthMiddleware(tokens),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Public routes: identity, anonymous signup+enroll, certificate lookup
	v1.POST("/auth/register", hm.authHandler.Register)
	v1.POST("/auth/login", hm.authHandler.Login)
	v1.POST("/enrollments/signup", hm.enrollmentHandler.SignupAndEnroll)
	v1.GET("/certificates/verify/:code", hm.certificateHandler.Verify)

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(hm.authMiddleware.Middleware())
	{
		// Enrollment routes
		enrollments := authed.Group("/enrollments")
		{
			enrollments.POST("", hm.enrollmentHandler.Enroll)
			enrollments.POST("/pay", hm.enrollmentHandler.EnrollWithPayment)
			enrollments.GET("", hm.enrollmentHandler.ListEnrollments)
			enrollments.POST("/:id/drop", hm.enrollmentHandler.Drop)
			enrollments.GET("/:id/progress", hm.progressHandler.GetProgress)
		}

		// Progress routes
		progress := authed.Group("/progress")
		{
			progress.POST("/lesson", hm.progressHandler.RecordLessonComplete)
			progress.POST("/assignment", hm.authMiddleware.RequireRole(models.RoleInstructor), hm.progressHandler.RecordAssignmentGraded)
		}

		// Certificate routes
		certificates := authed.Group("/certificates")
		{
			certificates.POST("/request", hm.certificateHandler.Request)
			certificates.GET("/requests", hm.authMiddleware.RequireRole(models.RoleInstructor), hm.certificateHandler.ListRequests)
			certificates.POST("/:id/issue", hm.authMiddleware.RequireRole(models.RoleInstructor), hm.certificateHandler.Issue)
			certificates.POST("/:id/reject", hm.authMiddleware.RequireRole(models.RoleInstructor), hm.certificateHandler.Reject)
		}

		// Course routes - instructor exports
		courses := authed.Group("/courses")
		{
			courses.GET("/:id/roster/export", hm.authMiddleware.RequireRole(models.RoleInstructor), hm.enrollmentHandler.ExportRoster)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "enrollment-service",
		})
	})
}
