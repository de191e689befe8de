package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumart/enrollment-service/internal/events"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/validator"
)

type progressFixture struct {
	repo      *mockRepository
	publisher *events.MockEventPublisher
	service   ProgressService
}

// newProgressFixture seeds one course with two lessons and one assignment
// (three trackable units) plus one active enrollment for stu-1.
func newProgressFixture(t *testing.T) (*progressFixture, *models.Enrollment) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(logger)

	repo.addUser(&models.User{ID: "stu-1", FullName: "Ada Learner", Email: "ada@example.com", Role: models.RoleStudent})
	repo.addUser(&models.User{ID: "ins-1", FullName: "Grace Hopper", Email: "grace@example.com", Role: models.RoleInstructor})
	repo.addCourse(&models.Course{
		ID: 1, Slug: "go-basics", Title: "Go Basics",
		Tier: models.TierFree, Status: models.CoursePublished, InstructorID: "ins-1",
		Lessons: []models.Lesson{
			{ID: 10, CourseID: 1, Title: "Hello", Position: 1},
			{ID: 11, CourseID: 1, Title: "Types", Position: 2},
		},
		Assignments: []models.Assignment{
			{ID: 20, CourseID: 1, Title: "Project", Position: 1},
		},
	})

	enrollment := &models.Enrollment{
		StudentID: "stu-1", CourseID: 1,
		Status: models.EnrollmentActive, EnrolledAt: time.Now(),
	}
	require.NoError(t, repo.Enrollment().Create(context.Background(), enrollment))

	return &progressFixture{
		repo:      repo,
		publisher: publisher,
		service:   NewProgressService(repo, publisher, logger, validator.New()),
	}, enrollment
}

func TestRecordLessonComplete(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	resp, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID,
		LessonID:     10,
	})
	require.NoError(t, err)

	// One of three units done: floor(1/3 * 100) = 33.
	assert.Equal(t, 33, resp.Progress)
	assert.Equal(t, models.EnrollmentActive, resp.Status)
}

func TestRecordLessonComplete_Idempotent(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	req := &RecordLessonRequest{EnrollmentID: enrollment.ID, LessonID: 10}
	first, err := f.service.RecordLessonComplete(ctx, "stu-1", req)
	require.NoError(t, err)

	second, err := f.service.RecordLessonComplete(ctx, "stu-1", req)
	require.NoError(t, err)
	assert.Equal(t, first.Progress, second.Progress)

	completions, err := f.repo.Progress().GetLessonCompletions(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Len(t, completions, 1)
}

func TestRecordLessonComplete_Guards(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordLessonComplete(ctx, "stu-2", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 10,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 999,
	})
	assert.ErrorIs(t, err, ErrLessonNotInCourse)

	_, err = f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: 999, LessonID: 10,
	})
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
}

func TestRecordLessonComplete_DroppedEnrollment(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	dropped, err := f.repo.Enrollment().MarkDropped(ctx, enrollment, time.Now())
	require.NoError(t, err)
	require.True(t, dropped)

	_, err = f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 10,
	})
	assert.ErrorIs(t, err, ErrEnrollmentNotActive)
}

func TestRecordAssignmentGraded_PartialCredit(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	resp, err := f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID,
		AssignmentID: 20,
		Score:        50,
		MaxScore:     100,
	})
	require.NoError(t, err)

	// Half an assignment out of three units: floor(0.5/3 * 100) = 16.
	assert.Equal(t, 16, resp.Progress)
}

func TestRecordAssignmentGraded_OneShot(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	req := &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 80, MaxScore: 100,
	}
	_, err := f.service.RecordAssignmentGraded(ctx, "ins-1", req)
	require.NoError(t, err)

	_, err = f.service.RecordAssignmentGraded(ctx, "ins-1", req)
	assert.ErrorIs(t, err, ErrAlreadyGraded)
}

func TestRecordAssignmentGraded_Guards(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordAssignmentGraded(ctx, "stu-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 80, MaxScore: 100,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 999, Score: 80, MaxScore: 100,
	})
	assert.ErrorIs(t, err, ErrAssignmentNotInCourse)

	_, err = f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 120, MaxScore: 100,
	})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestProgress_CompletionFlip(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 10,
	})
	require.NoError(t, err)
	_, err = f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 11,
	})
	require.NoError(t, err)

	// 2 lessons + full-score assignment = 3/3 units.
	resp, err := f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 100, MaxScore: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, models.EnrollmentCompleted, resp.Status)
	require.NotNil(t, resp.CompletedAt)
	assert.True(t, resp.CanRequestCertificate)

	completed := 0
	for _, event := range f.publisher.GetPublishedEvents() {
		if event.Type == events.TypeEnrollmentCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestProgress_ConcurrentCompletionPublishesOnce(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	// A rival caller finishes the whole course between the enrollment load
	// and the transaction of the outer call.
	f.repo.beforeTransaction = func() {
		for _, lessonID := range []uint{10, 11} {
			_, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
				EnrollmentID: enrollment.ID, LessonID: lessonID,
			})
			require.NoError(t, err)
		}
		_, err := f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
			EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 100, MaxScore: 100,
		})
		require.NoError(t, err)
	}

	resp, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 10,
	})
	require.NoError(t, err)

	// The outer call lost the flip; it reports the committed state and the
	// rival's completion event stays the only one.
	assert.Equal(t, models.EnrollmentCompleted, resp.Status)
	assert.Equal(t, 100, resp.Progress)
	require.NotNil(t, resp.CompletedAt)

	completed := 0
	for _, event := range f.publisher.GetPublishedEvents() {
		if event.Type == events.TypeEnrollmentCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)

	stored, err := f.repo.Enrollment().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, stored.Status)
	assert.Equal(t, 100, stored.Progress)
}

func TestProgress_SaturatedRecomputeKeepsCompleted(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	for _, lessonID := range []uint{10, 11} {
		_, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
			EnrollmentID: enrollment.ID, LessonID: lessonID,
		})
		require.NoError(t, err)
	}
	_, err := f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 100, MaxScore: 100,
	})
	require.NoError(t, err)
	f.publisher.ClearEvents()

	// Re-recording a lesson on a completed enrollment stays a no-op:
	// progress and status do not move and no second completion event fires.
	resp, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, models.EnrollmentCompleted, resp.Status)

	for _, event := range f.publisher.GetPublishedEvents() {
		assert.NotEqual(t, events.TypeEnrollmentCompleted, event.Type)
	}
}

func TestGetProgress(t *testing.T) {
	f, enrollment := newProgressFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordLessonComplete(ctx, "stu-1", &RecordLessonRequest{
		EnrollmentID: enrollment.ID, LessonID: 10,
	})
	require.NoError(t, err)
	_, err = f.service.RecordAssignmentGraded(ctx, "ins-1", &RecordAssignmentGradeRequest{
		EnrollmentID: enrollment.ID, AssignmentID: 20, Score: 25, MaxScore: 100,
	})
	require.NoError(t, err)

	progress, err := f.service.GetProgress(ctx, "stu-1", enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CompletedLessons)
	assert.Equal(t, 2, progress.TotalLessons)
	assert.Equal(t, 1, progress.GradedAssignments)
	assert.Equal(t, 1, progress.TotalAssignments)
	assert.InDelta(t, 0.25, progress.AssignmentCredit, 1e-9)

	// The course instructor may look too; strangers may not.
	_, err = f.service.GetProgress(ctx, "ins-1", enrollment.ID)
	assert.NoError(t, err)

	_, err = f.service.GetProgress(ctx, "stu-2", enrollment.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
