package services

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type EnrollRequest = validator.EnrollRequest
type EnrollWithPaymentRequest = validator.EnrollWithPaymentRequest
type SignupAndEnrollRequest = validator.SignupAndEnrollRequest
type SignupProfileRequest = validator.SignupProfileRequest
type PaymentDetails = validator.PaymentDetailsRequest
type LoginRequest = validator.LoginRequest
type RecordLessonRequest = validator.RecordLessonRequest
type RecordAssignmentGradeRequest = validator.RecordAssignmentGradeRequest
type CertificateRequestRequest = validator.CertificateRequestRequest

type EnrollmentResponse struct {
	*models.Enrollment
	CanDrop               bool `json:"can_drop"`
	CanRequestCertificate bool `json:"can_request_certificate"`
}

type EnrollmentListResponse struct {
	Enrollments []*EnrollmentResponse `json:"enrollments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

type SignupAndEnrollResponse struct {
	User       *models.User        `json:"user"`
	Enrollment *EnrollmentResponse `json:"enrollment"`
	Token      string              `json:"token,omitempty"`
}

type ProgressResponse struct {
	*models.Enrollment
	CompletedLessons  int     `json:"completed_lessons"`
	TotalLessons      int     `json:"total_lessons"`
	GradedAssignments int     `json:"graded_assignments"`
	TotalAssignments  int     `json:"total_assignments"`
	AssignmentCredit  float64 `json:"assignment_credit"`
}

type CertificateRequestResponse struct {
	*models.CertificateRequest
	StudentName string `json:"student_name,omitempty"`
	CourseTitle string `json:"course_title,omitempty"`
}

type CertificateRequestListResponse struct {
	Requests []*CertificateRequestResponse `json:"requests"`
	Total    int64                         `json:"total"`
	Page     int                           `json:"page"`
	Size     int                           `json:"size"`
}

// CertificateSummary is the public verification payload. It deliberately
// exposes nothing beyond the holder's name, the course title and the
// issuance date.
type CertificateSummary struct {
	StudentName      string    `json:"student_name"`
	CourseTitle      string    `json:"course_title"`
	IssuedAt         time.Time `json:"issued_at"`
	VerificationCode string    `json:"verification_code"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// ===== SERVICE INTERFACES =====

// EnrollmentService admits students into courses across the
// {free, premium} x {authenticated, anonymous} matrix.
type EnrollmentService interface {
	Enroll(ctx context.Context, studentID string, courseID uint) (*EnrollmentResponse, error)
	EnrollWithPayment(ctx context.Context, studentID string, courseID uint, details *PaymentDetails) (*EnrollmentResponse, error)
	SignupAndEnroll(ctx context.Context, req *SignupAndEnrollRequest) (*SignupAndEnrollResponse, error)
	List(ctx context.Context, studentID string, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error)
	Drop(ctx context.Context, studentID string, enrollmentID uint) (*EnrollmentResponse, error)
}

// ProgressService maintains Enrollment.Progress as a deterministic function
// of the course structure and the student's completions.
type ProgressService interface {
	RecordLessonComplete(ctx context.Context, studentID string, req *RecordLessonRequest) (*EnrollmentResponse, error)
	RecordAssignmentGraded(ctx context.Context, graderID string, req *RecordAssignmentGradeRequest) (*EnrollmentResponse, error)
	GetProgress(ctx context.Context, studentID string, enrollmentID uint) (*ProgressResponse, error)
}

// CertificateService runs the request -> review -> issue/reject pipeline.
type CertificateService interface {
	Request(ctx context.Context, studentID string, enrollmentID uint) (*CertificateRequestResponse, error)
	Issue(ctx context.Context, instructorID string, requestID uint) (*CertificateRequestResponse, error)
	Reject(ctx context.Context, instructorID string, requestID uint) (*CertificateRequestResponse, error)
	Verify(ctx context.Context, code string) (*CertificateSummary, error)
	ListRequests(ctx context.Context, instructorID string, filters repositories.CertificateRequestFilters) (*CertificateRequestListResponse, error)
}

// AuthService is the local identity provider surface.
type AuthService interface {
	Register(ctx context.Context, req *SignupProfileRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
}

// ExportService builds instructor-facing spreadsheet exports.
type ExportService interface {
	ExportCourseRoster(ctx context.Context, instructorID string, courseID uint) (*excelize.File, error)
}

// ServiceManager wires and owns all service instances.
type ServiceManager interface {
	Enrollment() EnrollmentService
	Progress() ProgressService
	Certificate() CertificateService
	Auth() AuthService
	Export() ExportService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
