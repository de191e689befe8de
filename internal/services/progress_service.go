package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edumart/enrollment-service/internal/events"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
	"github.com/edumart/enrollment-service/internal/validator"
)

type progressService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewProgressService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) ProgressService {
	return &progressService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *progressService) RecordLessonComplete(ctx context.Context, studentID string, req *RecordLessonRequest) (*EnrollmentResponse, error) {
	s.logger.Info("Recording lesson completion",
		"enrollment_id", req.EnrollmentID,
		"lesson_id", req.LessonID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	enrollment, err := s.getTrackableEnrollment(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.StudentID != studentID {
		return nil, NewPermissionError(studentID, req.EnrollmentID, "enrollment", "record lesson", "not owned by student")
	}
	if !lessonInCourse(&enrollment.Course, req.LessonID) {
		return nil, ErrLessonNotInCourse
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		completion := &models.LessonCompletion{
			EnrollmentID: req.EnrollmentID,
			LessonID:     req.LessonID,
			CompletedAt:  time.Now(),
		}
		if err := txRepo.Progress().CreateLessonCompletion(ctx, completion); err != nil {
			// Completing the same lesson twice is a no-op, not an error.
			if !repositories.IsDuplicateKeyError(err) {
				return fmt.Errorf("failed to record lesson completion: %w", err)
			}
		}
		return s.recomputeProgress(ctx, txRepo, enrollment)
	})
	if err != nil {
		return nil, err
	}

	return s.toResponse(enrollment), nil
}

func (s *progressService) RecordAssignmentGraded(ctx context.Context, graderID string, req *RecordAssignmentGradeRequest) (*EnrollmentResponse, error) {
	s.logger.Info("Recording assignment grade",
		"enrollment_id", req.EnrollmentID,
		"assignment_id", req.AssignmentID,
		"grader_id", graderID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.MaxScore <= 0 || req.Score < 0 || req.Score > req.MaxScore {
		return nil, ErrInvalidScore
	}

	enrollment, err := s.getTrackableEnrollment(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Course.InstructorID != graderID {
		return nil, NewPermissionError(graderID, req.EnrollmentID, "enrollment", "grade assignment", "not the course instructor")
	}
	if !assignmentInCourse(&enrollment.Course, req.AssignmentID) {
		return nil, ErrAssignmentNotInCourse
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		now := time.Now()
		score := req.Score

		submission, err := txRepo.Progress().GetSubmission(ctx, req.EnrollmentID, req.AssignmentID)
		switch {
		case err == nil:
			// Grading is one-way; corrections are a separate flow.
			if submission.IsGraded() {
				return ErrAlreadyGraded
			}
			submission.Score = &score
			submission.MaxScore = req.MaxScore
			submission.GradedAt = &now
			submission.GradedBy = &graderID
			if err := txRepo.Progress().UpdateSubmission(ctx, submission); err != nil {
				return fmt.Errorf("failed to update submission: %w", err)
			}
		case repositories.IsNotFoundError(err):
			submission = &models.AssignmentSubmission{
				EnrollmentID: req.EnrollmentID,
				AssignmentID: req.AssignmentID,
				Score:        &score,
				MaxScore:     req.MaxScore,
				SubmittedAt:  now,
				GradedAt:     &now,
				GradedBy:     &graderID,
			}
			if err := txRepo.Progress().CreateSubmission(ctx, submission); err != nil {
				if repositories.IsDuplicateKeyError(err) {
					return ErrAlreadyGraded
				}
				return fmt.Errorf("failed to create submission: %w", err)
			}
		default:
			return fmt.Errorf("failed to get submission: %w", err)
		}

		return s.recomputeProgress(ctx, txRepo, enrollment)
	})
	if err != nil {
		return nil, err
	}

	return s.toResponse(enrollment), nil
}

func (s *progressService) GetProgress(ctx context.Context, callerID string, enrollmentID uint) (*ProgressResponse, error) {
	enrollment, err := s.repo.Enrollment().GetByIDWithCourse(ctx, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if enrollment.StudentID != callerID && enrollment.Course.InstructorID != callerID {
		return nil, NewPermissionError(callerID, enrollmentID, "enrollment", "view progress", "neither owner nor instructor")
	}

	completions, err := s.repo.Progress().GetLessonCompletions(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson completions: %w", err)
	}
	submissions, err := s.repo.Progress().GetSubmissions(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}

	graded := 0
	credit := 0.0
	for _, submission := range submissions {
		if submission.IsGraded() {
			graded++
			credit += *submission.Score / submission.MaxScore
		}
	}

	return &ProgressResponse{
		Enrollment:        enrollment,
		CompletedLessons:  len(completions),
		TotalLessons:      len(enrollment.Course.Lessons),
		GradedAssignments: graded,
		TotalAssignments:  len(enrollment.Course.Assignments),
		AssignmentCredit:  credit,
	}, nil
}

// ===== HELPERS =====

// getTrackableEnrollment loads the enrollment with its course units and
// rejects dropped enrollments. Completed enrollments stay trackable: the
// recompute is saturated and leaves status alone.
func (s *progressService) getTrackableEnrollment(ctx context.Context, enrollmentID uint) (*models.Enrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByIDWithCourse(ctx, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment.Status == models.EnrollmentDropped {
		return nil, ErrEnrollmentNotActive
	}
	return enrollment, nil
}

// recomputeProgress derives progress from scratch and applies the
// ACTIVE -> COMPLETED transition the moment it reaches 100. Both writes are
// conditional updates against the stored row, not the copy loaded before
// the transaction, so concurrent recomputes cannot lower a committed value
// and exactly one of them stamps completed_at and publishes.
func (s *progressService) recomputeProgress(ctx context.Context, repo repositories.Repository, enrollment *models.Enrollment) error {
	units := enrollment.Course.TrackableUnits()
	if units == 0 {
		return nil
	}

	completions, err := repo.Progress().GetLessonCompletions(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to get lesson completions: %w", err)
	}
	submissions, err := repo.Progress().GetSubmissions(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to get submissions: %w", err)
	}

	credit := float64(len(completions))
	for _, submission := range submissions {
		if submission.IsGraded() {
			credit += *submission.Score / submission.MaxScore
		}
	}

	progress := int(credit / float64(units) * 100)
	if progress > 100 {
		progress = 100
	}

	if progress < 100 {
		updated, err := repo.Enrollment().UpdateProgress(ctx, enrollment, progress)
		if err != nil {
			return fmt.Errorf("failed to update enrollment progress: %w", err)
		}
		if updated {
			enrollment.Progress = progress
		}
		return nil
	}

	now := time.Now()
	completed, err := repo.Enrollment().MarkCompleted(ctx, enrollment, now)
	if err != nil {
		return fmt.Errorf("failed to complete enrollment: %w", err)
	}
	enrollment.Progress = 100
	if completed {
		enrollment.Status = models.EnrollmentCompleted
		enrollment.CompletedAt = &now
		s.publishCompleted(ctx, enrollment)
		s.logger.Info("Enrollment completed",
			"enrollment_id", enrollment.ID,
			"student_id", enrollment.StudentID)
		return nil
	}

	// A concurrent writer reached the row first; reflect its state instead
	// of the pre-transaction copy.
	if current, err := repo.Enrollment().GetByID(ctx, enrollment.ID); err == nil {
		enrollment.Status = current.Status
		enrollment.Progress = current.Progress
		enrollment.CompletedAt = current.CompletedAt
	}
	return nil
}

func (s *progressService) publishCompleted(ctx context.Context, enrollment *models.Enrollment) {
	event := events.NewEvent(events.TypeEnrollmentCompleted, events.EnrollmentEvent{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		CourseID:     enrollment.CourseID,
		Status:       string(enrollment.Status),
		Progress:     enrollment.Progress,
		OccurredAt:   time.Now(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish completion event",
			"enrollment_id", enrollment.ID,
			"error", err)
	}
}

func (s *progressService) toResponse(enrollment *models.Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		Enrollment:            enrollment,
		CanDrop:               enrollment.Status == models.EnrollmentActive,
		CanRequestCertificate: enrollment.Status == models.EnrollmentCompleted,
	}
}

func lessonInCourse(course *models.Course, lessonID uint) bool {
	for _, lesson := range course.Lessons {
		if lesson.ID == lessonID {
			return true
		}
	}
	return false
}

func assignmentInCourse(course *models.Course, assignmentID uint) bool {
	for _, assignment := range course.Assignments {
		if assignment.ID == assignmentID {
			return true
		}
	}
	return false
}
