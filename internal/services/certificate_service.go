package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/edumart/enrollment-service/internal/events"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

// verificationCodeAttempts bounds the retry loop on verification code
// collisions. Codes are 8 random bytes, so more than one retry is already
// astronomically unlikely.
const verificationCodeAttempts = 3

type certificateService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewCertificateService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
) CertificateService {
	return &certificateService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *certificateService) Request(ctx context.Context, studentID string, enrollmentID uint) (*CertificateRequestResponse, error) {
	s.logger.Info("Requesting certificate",
		"enrollment_id", enrollmentID,
		"student_id", studentID)

	enrollment, err := s.repo.Enrollment().GetByIDWithCourse(ctx, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment.StudentID != studentID {
		return nil, NewPermissionError(studentID, enrollmentID, "enrollment", "request certificate", "not owned by student")
	}
	if enrollment.Status != models.EnrollmentCompleted {
		return nil, ErrNotEligible
	}

	// Fast-fail when a request is already open. The partial unique index
	// remains the real guard for concurrent submissions.
	if open, err := s.repo.Certificate().GetOpenByEnrollment(ctx, enrollmentID); err == nil {
		if open.Status == models.CertificateIssued {
			return nil, ErrAlreadyIssued
		}
		return nil, ErrDuplicateRequest
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check open requests: %w", err)
	}

	request := &models.CertificateRequest{
		EnrollmentID: enrollmentID,
		Status:       models.CertificatePending,
		RequestedAt:  time.Now(),
	}
	if err := s.repo.Certificate().Create(ctx, request); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}

	request.Enrollment = *enrollment
	s.publishCertificateEvent(ctx, events.TypeCertificateRequested, request, "")

	return s.toResponse(ctx, request), nil
}

func (s *certificateService) Issue(ctx context.Context, instructorID string, requestID uint) (*CertificateRequestResponse, error) {
	s.logger.Info("Issuing certificate",
		"request_id", requestID,
		"instructor_id", instructorID)

	request, err := s.getReviewableRequest(ctx, instructorID, requestID, "issue")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var code string
	for attempt := 0; attempt < verificationCodeAttempts; attempt++ {
		code = newVerificationCode()
		updated, err := s.repo.Certificate().MarkIssued(ctx, requestID, code, instructorID, now)
		if err != nil {
			if repositories.IsDuplicateKeyError(err) {
				s.logger.Warn("Verification code collision, retrying",
					"request_id", requestID,
					"attempt", attempt+1)
				continue
			}
			return nil, fmt.Errorf("failed to issue certificate: %w", err)
		}
		if !updated {
			// A concurrent reviewer won the conditional update.
			return s.reviewConflict(ctx, requestID)
		}

		request.Status = models.CertificateIssued
		request.VerificationCode = &code
		request.IssuedAt = &now
		request.ReviewedBy = &instructorID
		s.publishCertificateEvent(ctx, events.TypeCertificateIssued, request, code)

		return s.toResponse(ctx, request), nil
	}

	return nil, fmt.Errorf("failed to issue certificate: could not allocate a unique verification code")
}

func (s *certificateService) Reject(ctx context.Context, instructorID string, requestID uint) (*CertificateRequestResponse, error) {
	s.logger.Info("Rejecting certificate request",
		"request_id", requestID,
		"instructor_id", instructorID)

	request, err := s.getReviewableRequest(ctx, instructorID, requestID, "reject")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := s.repo.Certificate().MarkRejected(ctx, requestID, instructorID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reject certificate request: %w", err)
	}
	if !updated {
		return s.reviewConflict(ctx, requestID)
	}

	request.Status = models.CertificateRejected
	request.RejectedAt = &now
	request.ReviewedBy = &instructorID
	s.publishCertificateEvent(ctx, events.TypeCertificateRejected, request, "")

	return s.toResponse(ctx, request), nil
}

func (s *certificateService) Verify(ctx context.Context, code string) (*CertificateSummary, error) {
	request, err := s.repo.Certificate().GetByVerificationCode(ctx, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to look up verification code: %w", err)
	}
	if request.Status != models.CertificateIssued || request.IssuedAt == nil {
		return nil, ErrCertificateNotFound
	}

	holder, err := s.repo.User().GetByID(ctx, request.Enrollment.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate holder: %w", err)
	}

	return &CertificateSummary{
		StudentName:      holder.FullName,
		CourseTitle:      request.Enrollment.Course.Title,
		IssuedAt:         *request.IssuedAt,
		VerificationCode: code,
	}, nil
}

func (s *certificateService) ListRequests(ctx context.Context, instructorID string, filters repositories.CertificateRequestFilters) (*CertificateRequestListResponse, error) {
	// Instructors only ever see requests against their own courses.
	filters.InstructorID = &instructorID

	requests, total, err := s.repo.Certificate().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificate requests: %w", err)
	}

	responses := make([]*CertificateRequestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, s.toResponse(ctx, request))
	}

	size := filters.Limit
	if size <= 0 {
		size = len(responses)
	}
	page := 1
	if size > 0 {
		page = filters.Offset/size + 1
	}

	return &CertificateRequestListResponse{
		Requests: responses,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// ===== HELPERS =====

// getReviewableRequest loads the request with its enrollment and course and
// checks that the caller owns the course and the request is still pending.
func (s *certificateService) getReviewableRequest(ctx context.Context, instructorID string, requestID uint, action string) (*models.CertificateRequest, error) {
	request, err := s.repo.Certificate().GetByIDWithEnrollment(ctx, requestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate request: %w", err)
	}
	if request.Enrollment.Course.InstructorID != instructorID {
		return nil, NewPermissionError(instructorID, requestID, "certificate_request", action, "not the course instructor")
	}
	if request.IsTerminal() {
		if request.Status == models.CertificateIssued {
			return nil, ErrAlreadyIssued
		}
		return nil, ErrConflict
	}
	return request, nil
}

// reviewConflict maps a lost conditional update to the sentinel matching the
// state the winner left behind.
func (s *certificateService) reviewConflict(ctx context.Context, requestID uint) (*CertificateRequestResponse, error) {
	current, err := s.repo.Certificate().GetByID(ctx, requestID)
	if err == nil && current.Status == models.CertificateIssued {
		return nil, ErrAlreadyIssued
	}
	return nil, ErrConflict
}

func (s *certificateService) toResponse(ctx context.Context, request *models.CertificateRequest) *CertificateRequestResponse {
	response := &CertificateRequestResponse{
		CertificateRequest: request,
		CourseTitle:        request.Enrollment.Course.Title,
	}
	if request.Enrollment.StudentID != "" {
		if holder, err := s.repo.User().GetByID(ctx, request.Enrollment.StudentID); err == nil {
			response.StudentName = holder.FullName
		}
	}
	return response
}

func (s *certificateService) publishCertificateEvent(ctx context.Context, eventType string, request *models.CertificateRequest, code string) {
	reviewedBy := ""
	if request.ReviewedBy != nil {
		reviewedBy = *request.ReviewedBy
	}
	event := events.NewEvent(eventType, events.CertificateEvent{
		RequestID:        request.ID,
		EnrollmentID:     request.EnrollmentID,
		StudentID:        request.Enrollment.StudentID,
		CourseID:         request.Enrollment.CourseID,
		Status:           string(request.Status),
		VerificationCode: code,
		ReviewedBy:       reviewedBy,
		OccurredAt:       time.Now(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish certificate event",
			"request_id", request.ID,
			"type", eventType,
			"error", err)
	}
}

// newVerificationCode returns a 16-character hex code from crypto/rand.
func newVerificationCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
