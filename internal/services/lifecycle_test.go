package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumart/enrollment-service/internal/auth"
	"github.com/edumart/enrollment-service/internal/events"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/validator"
)

// TestEnrollmentLifecycle drives the full path: anonymous signup with payment,
// lesson and assignment progress to completion, certificate request, issue and
// public verification.
func TestEnrollmentLifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockRepository()
	gateway := &stubGateway{}
	publisher := events.NewMockEventPublisher(logger)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	v := validator.New()

	repo.addUser(&models.User{ID: "ins-1", FullName: "Grace Hopper", Email: "grace@example.com", Role: models.RoleInstructor})
	repo.addCourse(&models.Course{
		ID: 7, Slug: "distributed-go", Title: "Distributed Systems in Go",
		Tier: models.TierPremium, PriceCents: 9900, Currency: "USD",
		Status: models.CoursePublished, InstructorID: "ins-1",
		Lessons: []models.Lesson{
			{ID: 70, CourseID: 7, Title: "Consensus", Position: 1},
		},
		Assignments: []models.Assignment{
			{ID: 80, CourseID: 7, Title: "Build a KV store", Position: 1},
		},
	})

	enrollments := NewEnrollmentService(repo, gateway, publisher, tokens, logger, v)
	progress := NewProgressService(repo, publisher, logger, v)
	certificates := NewCertificateService(repo, publisher, logger)

	// Anonymous visitor signs up and pays in one call.
	signup, err := enrollments.SignupAndEnroll(ctx, &SignupAndEnrollRequest{
		Profile: SignupProfileRequest{
			FullName: "Nia Student",
			Email:    "nia@example.com",
			Password: "pa55word",
		},
		CourseID:       7,
		PaymentDetails: paymentDetails(),
	})
	require.NoError(t, err)
	require.Len(t, gateway.charges, 1)
	assert.Equal(t, int64(9900), gateway.charges[0].AmountCents)

	studentID := signup.User.ID
	enrollmentID := signup.Enrollment.Enrollment.ID

	// Certificate cannot be requested while the enrollment is active.
	_, err = certificates.Request(ctx, studentID, enrollmentID)
	assert.ErrorIs(t, err, ErrNotEligible)

	// Work through both trackable units.
	_, err = progress.RecordLessonComplete(ctx, studentID, &RecordLessonRequest{
		EnrollmentID: enrollmentID, LessonID: 70,
	})
	require.NoError(t, err)

	completed, err := progress.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollmentID, AssignmentID: 80, Score: 95, MaxScore: 100,
	})
	require.NoError(t, err)
	// floor((1 + 0.95)/2 * 100) = 97 < 100: not complete yet.
	assert.Equal(t, 97, completed.Progress)
	assert.Equal(t, models.EnrollmentActive, completed.Status)

	// Grades are one-shot: 97% is where this enrollment stays.
	_, err = progress.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollmentID, AssignmentID: 80, Score: 100, MaxScore: 100,
	})
	assert.ErrorIs(t, err, ErrAlreadyGraded)

	// A second student with full marks walks through to completion and the
	// certificate flow.
	fresh := &models.Enrollment{
		StudentID: "stu-fresh", CourseID: 7,
		Status: models.EnrollmentActive, EnrolledAt: time.Now(),
	}
	repo.addUser(&models.User{ID: "stu-fresh", FullName: "Flo Finisher", Email: "flo@example.com", Role: models.RoleStudent})
	require.NoError(t, repo.Enrollment().Create(ctx, fresh))

	_, err = progress.RecordLessonComplete(ctx, "stu-fresh", &RecordLessonRequest{
		EnrollmentID: fresh.ID, LessonID: 70,
	})
	require.NoError(t, err)
	finished, err := progress.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: fresh.ID, AssignmentID: 80, Score: 100, MaxScore: 100,
	})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentCompleted, finished.Status)

	// Request, issue, verify.
	requested, err := certificates.Request(ctx, "stu-fresh", fresh.ID)
	require.NoError(t, err)

	issued, err := certificates.Issue(ctx, "ins-1", requested.ID)
	require.NoError(t, err)
	require.NotNil(t, issued.VerificationCode)

	summary, err := certificates.Verify(ctx, *issued.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, "Flo Finisher", summary.StudentName)
	assert.Equal(t, "Distributed Systems in Go", summary.CourseTitle)

	// Event trail covers every stage.
	seen := map[string]bool{}
	for _, event := range publisher.GetPublishedEvents() {
		seen[event.Type] = true
	}
	assert.True(t, seen[events.TypeEnrollmentCreated])
	assert.True(t, seen[events.TypeEnrollmentCompleted])
	assert.True(t, seen[events.TypeCertificateRequested])
	assert.True(t, seen[events.TypeCertificateIssued])
}

func TestNewDefaultServiceManager(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockRepository()
	manager := NewDefaultServiceManager(
		repo,
		&stubGateway{},
		events.NewMockEventPublisher(logger),
		auth.NewTokenManager("test-secret", time.Hour),
		logger,
		validator.New(),
	)

	ctx := context.Background()
	require.NoError(t, manager.Initialize(ctx))
	require.NoError(t, manager.HealthCheck(ctx))

	assert.NotNil(t, manager.Enrollment())
	assert.NotNil(t, manager.Progress())
	assert.NotNil(t, manager.Certificate())
	assert.NotNil(t, manager.Auth())
	assert.NotNil(t, manager.Export())

	require.NoError(t, manager.Shutdown(ctx))
	assert.Error(t, manager.HealthCheck(ctx))
}
