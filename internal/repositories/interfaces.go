package repositories

import (
	"context"
	"time"

	"github.com/edumart/enrollment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type EnrollmentFilters struct {
	Status    *models.EnrollmentStatus `json:"status"`
	CourseID  *uint                    `json:"course_id"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "enrolled_at", "progress"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type CertificateRequestFilters struct {
	Status       *models.CertificateRequestStatus `json:"status"`
	CourseID     *uint                            `json:"course_id"`
	InstructorID *string                          `json:"instructor_id"`
	Limit        int                              `json:"limit"`
	Offset       int                              `json:"offset"`
	SortBy       string                           `json:"sort_by"`
	SortOrder    string                           `json:"sort_order"`
}

// ===== PER-DOMAIN INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// CourseRepository is read-only: the catalog service owns course authoring.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	// GetByIDWithUnits preloads lessons and assignments for progress math.
	GetByIDWithUnits(ctx context.Context, id uint) (*models.Course, error)
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id uint) (*models.Enrollment, error)
	GetByIDWithCourse(ctx context.Context, id uint) (*models.Enrollment, error)
	// GetCurrentByPair returns the single non-dropped enrollment for the
	// pair, or gorm.ErrRecordNotFound.
	GetCurrentByPair(ctx context.Context, studentID string, courseID uint) (*models.Enrollment, error)
	// UpdateProgress raises the stored progress as a conditional update:
	// only an active row with a lower value is written, so a stale
	// recompute can never lower a committed progress. False means no row
	// qualified.
	UpdateProgress(ctx context.Context, enrollment *models.Enrollment, progress int) (bool, error)
	// MarkCompleted performs the active -> completed transition as a
	// conditional update, the same way MarkIssued serializes certificate
	// reviews. It reports false when the row was not active anymore, so
	// exactly one of any concurrent recomputes stamps completed_at.
	MarkCompleted(ctx context.Context, enrollment *models.Enrollment, at time.Time) (bool, error)
	// MarkDropped performs the active -> dropped transition as a
	// conditional update. False means the enrollment was not active.
	MarkDropped(ctx context.Context, enrollment *models.Enrollment, at time.Time) (bool, error)
	GetByStudent(ctx context.Context, studentID string, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
	GetByCourse(ctx context.Context, courseID uint, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
}

type ProgressRepository interface {
	CreateLessonCompletion(ctx context.Context, completion *models.LessonCompletion) error
	GetLessonCompletions(ctx context.Context, enrollmentID uint) ([]*models.LessonCompletion, error)
	CreateSubmission(ctx context.Context, submission *models.AssignmentSubmission) error
	UpdateSubmission(ctx context.Context, submission *models.AssignmentSubmission) error
	GetSubmission(ctx context.Context, enrollmentID, assignmentID uint) (*models.AssignmentSubmission, error)
	GetSubmissions(ctx context.Context, enrollmentID uint) ([]*models.AssignmentSubmission, error)
}

type CertificateRepository interface {
	Create(ctx context.Context, request *models.CertificateRequest) error
	GetByID(ctx context.Context, id uint) (*models.CertificateRequest, error)
	GetByIDWithEnrollment(ctx context.Context, id uint) (*models.CertificateRequest, error)
	// GetOpenByEnrollment returns the pending or issued request for the
	// enrollment, or gorm.ErrRecordNotFound.
	GetOpenByEnrollment(ctx context.Context, enrollmentID uint) (*models.CertificateRequest, error)
	GetByVerificationCode(ctx context.Context, code string) (*models.CertificateRequest, error)
	// MarkIssued performs the pending -> issued transition as a conditional
	// update. It reports false when the request was not pending anymore, so
	// the loser of a concurrent review observes the conflict instead of
	// overwriting the winner.
	MarkIssued(ctx context.Context, id uint, code string, reviewerID string, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, id uint, reviewerID string, at time.Time) (bool, error)
	List(ctx context.Context, filters CertificateRequestFilters) ([]*models.CertificateRequest, int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.CoursePayment) error
	Update(ctx context.Context, payment *models.CoursePayment) error
	GetByID(ctx context.Context, id uint) (*models.CoursePayment, error)
	GetByStudent(ctx context.Context, studentID string) ([]*models.CoursePayment, error)
}
