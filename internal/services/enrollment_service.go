package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/edumart/enrollment-service/internal/auth"
	"github.com/edumart/enrollment-service/internal/events"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/payment"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/validator"
)

type enrollmentService struct {
	repo      repositories.Repository
	gateway   payment.Gateway
	publisher events.EventPublisher
	tokens    *auth.TokenManager
	logger    *slog.Logger
	validator *validator.Validator
}

func NewEnrollmentService(
	repo repositories.Repository,
	gateway payment.Gateway,
	publisher events.EventPublisher,
	tokens *auth.TokenManager,
	logger *slog.Logger,
	validator *validator.Validator,
) EnrollmentService {
	return &enrollmentService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		tokens:    tokens,
		logger:    logger,
		validator: validator,
	}
}

// ===== FREE PATH =====

func (s *enrollmentService) Enroll(ctx context.Context, studentID string, courseID uint) (*EnrollmentResponse, error) {
	s.logger.Info("Enrolling student",
		"student_id", studentID,
		"course_id", courseID)

	course, err := s.getEnrollableCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Tier != models.TierFree {
		return nil, ErrPremiumCourse
	}

	enrollment, err := s.createEnrollment(ctx, s.repo, studentID, courseID)
	if err != nil {
		return nil, err
	}

	s.publishEnrollmentEvent(ctx, events.TypeEnrollmentCreated, enrollment)

	s.logger.Info("Student enrolled",
		"enrollment_id", enrollment.ID,
		"student_id", studentID,
		"course_id", courseID)

	return s.toEnrollmentResponse(enrollment), nil
}

// ===== PREMIUM PATH =====

func (s *enrollmentService) EnrollWithPayment(ctx context.Context, studentID string, courseID uint, details *PaymentDetails) (*EnrollmentResponse, error) {
	s.logger.Info("Enrolling student with payment",
		"student_id", studentID,
		"course_id", courseID)

	if err := s.validator.Validate(details); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	course, err := s.getEnrollableCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Tier != models.TierPremium {
		// A free course must never produce a charge.
		s.logger.Info("Course is free, skipping payment", "course_id", courseID)
		return s.Enroll(ctx, studentID, courseID)
	}

	// Fast-fail before charging. The unique index still guards the race;
	// this check only avoids an avoidable capture-then-refund cycle.
	if _, err := s.repo.Enrollment().GetCurrentByPair(ctx, studentID, courseID); err == nil {
		return nil, ErrAlreadyEnrolled
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing enrollment: %w", err)
	}

	// The gateway call happens outside any database transaction: no lock is
	// held while waiting on the collaborator.
	reference := payment.NewReference()
	charge, err := s.gateway.Charge(ctx, &payment.ChargeRequest{
		AmountCents: course.PriceCents,
		Currency:    course.Currency,
		CardToken:   details.CardToken,
		Method:      details.Method,
		Reference:   reference,
	})
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			s.recordPayment(ctx, &models.CoursePayment{
				StudentID:   studentID,
				CourseID:    courseID,
				AmountCents: course.PriceCents,
				Currency:    course.Currency,
				Status:      models.PaymentDeclined,
				Provider:    providerName(s.gateway),
				Metadata:    paymentMetadata(reference, details.Method),
			})
			return nil, ErrPaymentDeclined
		}
		return nil, fmt.Errorf("payment gateway error: %w", err)
	}

	// Charge is captured. Record the enrollment and the payment in one
	// transaction so a captured charge is never left without either an
	// enrollment or a refund marker.
	var enrollment *models.Enrollment
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var txErr error
		enrollment, txErr = s.createEnrollment(ctx, txRepo, studentID, courseID)
		if txErr != nil {
			return txErr
		}

		return txRepo.Payment().Create(ctx, &models.CoursePayment{
			StudentID:    studentID,
			CourseID:     courseID,
			EnrollmentID: &enrollment.ID,
			AmountCents:  course.PriceCents,
			Currency:     course.Currency,
			Status:       models.PaymentCaptured,
			Provider:     providerName(s.gateway),
			ProviderRef:  charge.ProviderRef,
			Metadata:     paymentMetadata(reference, details.Method),
		})
	})
	if err != nil {
		// The charge exists but the enrollment does not. Flag the payment
		// for reconciliation; it must never be silently kept.
		s.flagRefundPending(ctx, studentID, course, charge, reference, details.Method)
		if errors.Is(err, ErrAlreadyEnrolled) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to record paid enrollment: %w", err)
	}

	s.publishEnrollmentEvent(ctx, events.TypeEnrollmentCreated, enrollment)

	s.logger.Info("Student enrolled with payment",
		"enrollment_id", enrollment.ID,
		"student_id", studentID,
		"course_id", courseID,
		"provider_ref", charge.ProviderRef)

	return s.toEnrollmentResponse(enrollment), nil
}

// ===== ANONYMOUS PATH =====

func (s *enrollmentService) SignupAndEnroll(ctx context.Context, req *SignupAndEnrollRequest) (*SignupAndEnrollResponse, error) {
	s.logger.Info("Signup and enroll",
		"email", req.Profile.Email,
		"course_id", req.CourseID)

	if err := s.validator.Validate(req); err != nil {
		if len(req.Profile.Password) < auth.MinPasswordLength {
			return nil, ErrWeakPassword
		}
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	course, err := s.getEnrollableCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Tier == models.TierPremium && req.PaymentDetails == nil {
		return nil, ErrPremiumCourse
	}

	// Account creation commits before enrollment is attempted: a later
	// payment decline keeps the account, which a human now legitimately
	// owns, and only the enrollment half is retried (by the caller, with
	// these credentials).
	hash, err := auth.HashPassword(req.Profile.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FullName:     req.Profile.FullName,
		Email:        req.Profile.Email,
		PasswordHash: hash,
		Phone:        req.Profile.Phone,
		Role:         models.RoleStudent,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	var enrollResp *EnrollmentResponse
	if course.Tier == models.TierPremium {
		enrollResp, err = s.EnrollWithPayment(ctx, user.ID, req.CourseID, req.PaymentDetails)
	} else {
		enrollResp, err = s.Enroll(ctx, user.ID, req.CourseID)
	}
	if err != nil {
		// Account survives; the enrollment failure propagates as-is.
		s.logger.Warn("Signup succeeded but enrollment failed",
			"user_id", user.ID,
			"course_id", req.CourseID,
			"error", err)
		return nil, err
	}

	s.logger.Info("Signup and enroll completed",
		"user_id", user.ID,
		"enrollment_id", enrollResp.Enrollment.ID)

	return &SignupAndEnrollResponse{
		User:       user,
		Enrollment: enrollResp,
		Token:      token,
	}, nil
}

// ===== LIST / DROP =====

func (s *enrollmentService) List(ctx context.Context, studentID string, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error) {
	enrollments, total, err := s.repo.Enrollment().GetByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	responses := make([]*EnrollmentResponse, len(enrollments))
	for i, enrollment := range enrollments {
		responses[i] = s.toEnrollmentResponse(enrollment)
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &EnrollmentListResponse{
		Enrollments: responses,
		Total:       total,
		Page:        page,
		Size:        len(responses),
	}, nil
}

func (s *enrollmentService) Drop(ctx context.Context, studentID string, enrollmentID uint) (*EnrollmentResponse, error) {
	enrollment, err := s.repo.Enrollment().GetByID(ctx, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if enrollment.StudentID != studentID {
		return nil, NewPermissionError(studentID, enrollmentID, "enrollment", "drop", "not owned by student")
	}
	if enrollment.Status != models.EnrollmentActive {
		return nil, ErrEnrollmentNotActive
	}

	// The drop only lands if the row is still ACTIVE at write time; a
	// completion committing between the read above and here wins.
	now := time.Now()
	dropped, err := s.repo.Enrollment().MarkDropped(ctx, enrollment, now)
	if err != nil {
		return nil, fmt.Errorf("failed to drop enrollment: %w", err)
	}
	if !dropped {
		return nil, ErrEnrollmentNotActive
	}
	enrollment.Status = models.EnrollmentDropped
	enrollment.DroppedAt = &now

	s.publishEnrollmentEvent(ctx, events.TypeEnrollmentDropped, enrollment)

	s.logger.Info("Enrollment dropped",
		"enrollment_id", enrollmentID,
		"student_id", studentID)

	return s.toEnrollmentResponse(enrollment), nil
}

// ===== HELPERS =====

func (s *enrollmentService) getEnrollableCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.Status != models.CoursePublished {
		return nil, ErrCourseUnavailable
	}
	return course, nil
}

// createEnrollment inserts the row and translates the unique-index
// violation into AlreadyEnrolled. The index is the arbiter under
// concurrency; there is no check-then-act here.
func (s *enrollmentService) createEnrollment(ctx context.Context, repo repositories.Repository, studentID string, courseID uint) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     models.EnrollmentActive,
		Progress:   0,
		EnrolledAt: time.Now(),
	}
	if err := repo.Enrollment().Create(ctx, enrollment); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}
	return enrollment, nil
}

func (s *enrollmentService) flagRefundPending(ctx context.Context, studentID string, course *models.Course, charge *payment.ChargeResult, reference, method string) {
	record := &models.CoursePayment{
		StudentID:   studentID,
		CourseID:    course.ID,
		AmountCents: course.PriceCents,
		Currency:    course.Currency,
		Status:      models.PaymentRefundPending,
		Provider:    providerName(s.gateway),
		ProviderRef: charge.ProviderRef,
		Metadata:    paymentMetadata(reference, method),
	}
	s.recordPayment(ctx, record)

	event := events.NewEvent(events.TypePaymentRefundPending, events.PaymentEvent{
		PaymentID:   record.ID,
		StudentID:   studentID,
		CourseID:    course.ID,
		AmountCents: course.PriceCents,
		Currency:    course.Currency,
		ProviderRef: charge.ProviderRef,
		Status:      string(models.PaymentRefundPending),
		OccurredAt:  time.Now(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish refund pending event",
			"provider_ref", charge.ProviderRef,
			"error", err)
	}
}

// recordPayment is best-effort bookkeeping: a failure to write the record is
// logged, never surfaced over the original outcome.
func (s *enrollmentService) recordPayment(ctx context.Context, record *models.CoursePayment) {
	if err := s.repo.Payment().Create(ctx, record); err != nil {
		s.logger.Error("Failed to record payment",
			"student_id", record.StudentID,
			"course_id", record.CourseID,
			"status", record.Status,
			"error", err)
	}
}

func (s *enrollmentService) publishEnrollmentEvent(ctx context.Context, eventType string, enrollment *models.Enrollment) {
	event := events.NewEvent(eventType, events.EnrollmentEvent{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		CourseID:     enrollment.CourseID,
		Status:       string(enrollment.Status),
		Progress:     enrollment.Progress,
		OccurredAt:   time.Now(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish enrollment event",
			"event_type", eventType,
			"enrollment_id", enrollment.ID,
			"error", err)
	}
}

func (s *enrollmentService) toEnrollmentResponse(enrollment *models.Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		Enrollment:            enrollment,
		CanDrop:               enrollment.Status == models.EnrollmentActive,
		CanRequestCertificate: enrollment.Status == models.EnrollmentCompleted,
	}
}

func providerName(gateway payment.Gateway) string {
	if named, ok := gateway.(interface{ Provider() string }); ok {
		return named.Provider()
	}
	return "unknown"
}

func paymentMetadata(reference, method string) datatypes.JSON {
	return datatypes.JSON(fmt.Sprintf(`{"reference":%q,"method":%q}`, reference, method))
}
