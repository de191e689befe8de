package services

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

// mockRepository is an in-memory Repository used by the service tests. It
// emulates the uniqueness guarantees the real schema provides: the enrollment
// pair index, the lesson/submission once-indexes, the open certificate
// request index and the verification code index all surface as
// gorm.ErrDuplicatedKey, exactly like the Postgres layer with TranslateError.
// Enrollment and certificate reads return copies of the stored rows, so a
// loaded struct goes stale when the stored row changes, and status flips go
// through the same conditional-update methods the Postgres layer exposes.
type mockRepository struct {
	mu sync.Mutex

	users       map[string]*models.User
	courses     map[uint]*models.Course
	enrollments map[uint]*models.Enrollment
	completions map[uint][]*models.LessonCompletion
	submissions map[uint][]*models.AssignmentSubmission
	requests    map[uint]*models.CertificateRequest
	payments    map[uint]*models.CoursePayment

	nextEnrollmentID uint
	nextRequestID    uint
	nextPaymentID    uint
	nextRowID        uint

	// One-shot hooks for interleaving a rival writer mid-operation. Each is
	// cleared before it runs so the rival's own calls do not retrigger it.
	beforeTransaction       func()
	beforeConditionalUpdate func()
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:            make(map[string]*models.User),
		courses:          make(map[uint]*models.Course),
		enrollments:      make(map[uint]*models.Enrollment),
		completions:      make(map[uint][]*models.LessonCompletion),
		submissions:      make(map[uint][]*models.AssignmentSubmission),
		requests:         make(map[uint]*models.CertificateRequest),
		payments:         make(map[uint]*models.CoursePayment),
		nextEnrollmentID: 1,
		nextRequestID:    1,
		nextPaymentID:    1,
		nextRowID:        1,
	}
}

func (m *mockRepository) addUser(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return user
}

func (m *mockRepository) addCourse(course *models.Course) *models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = course
	return course
}

func (m *mockRepository) User() repositories.UserRepository               { return &mockUserRepo{m} }
func (m *mockRepository) Course() repositories.CourseRepository           { return &mockCourseRepo{m} }
func (m *mockRepository) Enrollment() repositories.EnrollmentRepository   { return &mockEnrollmentRepo{m} }
func (m *mockRepository) Progress() repositories.ProgressRepository       { return &mockProgressRepo{m} }
func (m *mockRepository) Certificate() repositories.CertificateRepository { return &mockCertificateRepo{m} }
func (m *mockRepository) Payment() repositories.PaymentRepository         { return &mockPaymentRepo{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if hook := m.beforeTransaction; hook != nil {
		m.beforeTransaction = nil
		hook()
	}
	return fn(m)
}

func (m *mockRepository) fireConditionalUpdateHook() {
	if hook := m.beforeConditionalUpdate; hook != nil {
		m.beforeConditionalUpdate = nil
		hook()
	}
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== USERS =====

type mockUserRepo struct{ m *mockRepository }

func (r *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.m.users[user.ID] = user
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if user, ok := r.m.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, user := range r.m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

// ===== COURSES =====

type mockCourseRepo struct{ m *mockRepository }

func (r *mockCourseRepo) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if course, ok := r.m.courses[id]; ok {
		return course, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockCourseRepo) GetByIDWithUnits(ctx context.Context, id uint) (*models.Course, error) {
	return r.GetByID(ctx, id)
}

func (r *mockCourseRepo) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, course := range r.m.courses {
		if course.Slug == slug {
			return course, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ===== ENROLLMENTS =====

type mockEnrollmentRepo struct{ m *mockRepository }

func (r *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.enrollments {
		if existing.StudentID == enrollment.StudentID &&
			existing.CourseID == enrollment.CourseID &&
			existing.Status != models.EnrollmentDropped {
			return gorm.ErrDuplicatedKey
		}
	}
	enrollment.ID = r.m.nextEnrollmentID
	r.m.nextEnrollmentID++
	r.m.enrollments[enrollment.ID] = enrollment
	return nil
}

func (r *mockEnrollmentRepo) GetByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if enrollment, ok := r.m.enrollments[id]; ok {
		snapshot := *enrollment
		return &snapshot, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockEnrollmentRepo) GetByIDWithCourse(ctx context.Context, id uint) (*models.Enrollment, error) {
	enrollment, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if course, ok := r.m.courses[enrollment.CourseID]; ok {
		enrollment.Course = *course
	}
	return enrollment, nil
}

func (r *mockEnrollmentRepo) GetCurrentByPair(ctx context.Context, studentID string, courseID uint) (*models.Enrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, enrollment := range r.m.enrollments {
		if enrollment.StudentID == studentID &&
			enrollment.CourseID == courseID &&
			enrollment.Status != models.EnrollmentDropped {
			snapshot := *enrollment
			return &snapshot, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockEnrollmentRepo) UpdateProgress(ctx context.Context, enrollment *models.Enrollment, progress int) (bool, error) {
	r.m.fireConditionalUpdateHook()
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.enrollments[enrollment.ID]
	if !ok || stored.Status != models.EnrollmentActive || stored.Progress >= progress {
		return false, nil
	}
	stored.Progress = progress
	return true, nil
}

func (r *mockEnrollmentRepo) MarkCompleted(ctx context.Context, enrollment *models.Enrollment, at time.Time) (bool, error) {
	r.m.fireConditionalUpdateHook()
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.enrollments[enrollment.ID]
	if !ok || stored.Status != models.EnrollmentActive {
		return false, nil
	}
	completedAt := at
	stored.Status = models.EnrollmentCompleted
	stored.Progress = 100
	stored.CompletedAt = &completedAt
	return true, nil
}

func (r *mockEnrollmentRepo) MarkDropped(ctx context.Context, enrollment *models.Enrollment, at time.Time) (bool, error) {
	r.m.fireConditionalUpdateHook()
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.enrollments[enrollment.ID]
	if !ok || stored.Status != models.EnrollmentActive {
		return false, nil
	}
	droppedAt := at
	stored.Status = models.EnrollmentDropped
	stored.DroppedAt = &droppedAt
	return true, nil
}

func (r *mockEnrollmentRepo) GetByStudent(ctx context.Context, studentID string, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Enrollment
	for _, enrollment := range r.m.enrollments {
		if enrollment.StudentID != studentID {
			continue
		}
		if filters.Status != nil && enrollment.Status != *filters.Status {
			continue
		}
		out = append(out, enrollment)
	}
	return out, int64(len(out)), nil
}

func (r *mockEnrollmentRepo) GetByCourse(ctx context.Context, courseID uint, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Enrollment
	for _, enrollment := range r.m.enrollments {
		if enrollment.CourseID == courseID {
			out = append(out, enrollment)
		}
	}
	return out, int64(len(out)), nil
}

// ===== PROGRESS =====

type mockProgressRepo struct{ m *mockRepository }

func (r *mockProgressRepo) CreateLessonCompletion(ctx context.Context, completion *models.LessonCompletion) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.completions[completion.EnrollmentID] {
		if existing.LessonID == completion.LessonID {
			return gorm.ErrDuplicatedKey
		}
	}
	completion.ID = r.m.nextRowID
	r.m.nextRowID++
	r.m.completions[completion.EnrollmentID] = append(r.m.completions[completion.EnrollmentID], completion)
	return nil
}

func (r *mockProgressRepo) GetLessonCompletions(ctx context.Context, enrollmentID uint) ([]*models.LessonCompletion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.completions[enrollmentID], nil
}

func (r *mockProgressRepo) CreateSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.submissions[submission.EnrollmentID] {
		if existing.AssignmentID == submission.AssignmentID {
			return gorm.ErrDuplicatedKey
		}
	}
	submission.ID = r.m.nextRowID
	r.m.nextRowID++
	r.m.submissions[submission.EnrollmentID] = append(r.m.submissions[submission.EnrollmentID], submission)
	return nil
}

func (r *mockProgressRepo) UpdateSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, existing := range r.m.submissions[submission.EnrollmentID] {
		if existing.ID == submission.ID {
			r.m.submissions[submission.EnrollmentID][i] = submission
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockProgressRepo) GetSubmission(ctx context.Context, enrollmentID, assignmentID uint) (*models.AssignmentSubmission, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, submission := range r.m.submissions[enrollmentID] {
		if submission.AssignmentID == assignmentID {
			return submission, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockProgressRepo) GetSubmissions(ctx context.Context, enrollmentID uint) ([]*models.AssignmentSubmission, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.submissions[enrollmentID], nil
}

// ===== CERTIFICATES =====

type mockCertificateRepo struct{ m *mockRepository }

func (r *mockCertificateRepo) Create(ctx context.Context, request *models.CertificateRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.requests {
		if existing.EnrollmentID == request.EnrollmentID &&
			existing.Status != models.CertificateRejected {
			return gorm.ErrDuplicatedKey
		}
	}
	request.ID = r.m.nextRequestID
	r.m.nextRequestID++
	r.m.requests[request.ID] = request
	return nil
}

func (r *mockCertificateRepo) GetByID(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if request, ok := r.m.requests[id]; ok {
		snapshot := *request
		return &snapshot, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockCertificateRepo) GetByIDWithEnrollment(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	request, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if enrollment, ok := r.m.enrollments[request.EnrollmentID]; ok {
		request.Enrollment = *enrollment
		if course, ok := r.m.courses[enrollment.CourseID]; ok {
			request.Enrollment.Course = *course
		}
	}
	return request, nil
}

func (r *mockCertificateRepo) GetOpenByEnrollment(ctx context.Context, enrollmentID uint) (*models.CertificateRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, request := range r.m.requests {
		if request.EnrollmentID == enrollmentID && request.Status != models.CertificateRejected {
			snapshot := *request
			return &snapshot, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockCertificateRepo) GetByVerificationCode(ctx context.Context, code string) (*models.CertificateRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, request := range r.m.requests {
		if request.VerificationCode != nil && *request.VerificationCode == code {
			snapshot := *request
			if enrollment, ok := r.m.enrollments[request.EnrollmentID]; ok {
				snapshot.Enrollment = *enrollment
				if course, ok := r.m.courses[enrollment.CourseID]; ok {
					snapshot.Enrollment.Course = *course
				}
			}
			return &snapshot, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockCertificateRepo) MarkIssued(ctx context.Context, id uint, code string, reviewerID string, at time.Time) (bool, error) {
	r.m.fireConditionalUpdateHook()
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	request, ok := r.m.requests[id]
	if !ok || request.Status != models.CertificatePending {
		return false, nil
	}
	for _, existing := range r.m.requests {
		if existing.VerificationCode != nil && *existing.VerificationCode == code {
			return false, gorm.ErrDuplicatedKey
		}
	}
	request.Status = models.CertificateIssued
	request.VerificationCode = &code
	request.IssuedAt = &at
	request.ReviewedBy = &reviewerID
	return true, nil
}

func (r *mockCertificateRepo) MarkRejected(ctx context.Context, id uint, reviewerID string, at time.Time) (bool, error) {
	r.m.fireConditionalUpdateHook()
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	request, ok := r.m.requests[id]
	if !ok || request.Status != models.CertificatePending {
		return false, nil
	}
	request.Status = models.CertificateRejected
	request.RejectedAt = &at
	request.ReviewedBy = &reviewerID
	return true, nil
}

func (r *mockCertificateRepo) List(ctx context.Context, filters repositories.CertificateRequestFilters) ([]*models.CertificateRequest, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.CertificateRequest
	for _, request := range r.m.requests {
		if filters.Status != nil && request.Status != *filters.Status {
			continue
		}
		enrollment, ok := r.m.enrollments[request.EnrollmentID]
		if !ok {
			continue
		}
		if filters.CourseID != nil && enrollment.CourseID != *filters.CourseID {
			continue
		}
		if filters.InstructorID != nil {
			course, ok := r.m.courses[enrollment.CourseID]
			if !ok || course.InstructorID != *filters.InstructorID {
				continue
			}
		}
		snapshot := *request
		snapshot.Enrollment = *enrollment
		if course, ok := r.m.courses[enrollment.CourseID]; ok {
			snapshot.Enrollment.Course = *course
		}
		out = append(out, &snapshot)
	}
	return out, int64(len(out)), nil
}

// ===== PAYMENTS =====

type mockPaymentRepo struct{ m *mockRepository }

func (r *mockPaymentRepo) Create(ctx context.Context, payment *models.CoursePayment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	payment.ID = r.m.nextPaymentID
	r.m.nextPaymentID++
	r.m.payments[payment.ID] = payment
	return nil
}

func (r *mockPaymentRepo) Update(ctx context.Context, payment *models.CoursePayment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.payments[payment.ID] = payment
	return nil
}

func (r *mockPaymentRepo) GetByID(ctx context.Context, id uint) (*models.CoursePayment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if payment, ok := r.m.payments[id]; ok {
		return payment, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockPaymentRepo) GetByStudent(ctx context.Context, studentID string) ([]*models.CoursePayment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.CoursePayment
	for _, payment := range r.m.payments {
		if payment.StudentID == studentID {
			out = append(out, payment)
		}
	}
	return out, nil
}
