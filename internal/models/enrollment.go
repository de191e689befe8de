package models

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// Enrollment records a student's relationship to a course. At most one
// non-dropped row may exist per (student, course) pair; the partial unique
// index makes the database the arbiter under concurrent enrolls. Rows are
// never deleted; dropped enrollments are kept as history.
type Enrollment struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	StudentID string           `json:"student_id" gorm:"not null;size:36;index;index:idx_enrollments_pair,unique,where:status <> 'dropped'"`
	CourseID  uint             `json:"course_id" gorm:"not null;index;index:idx_enrollments_pair,unique,where:status <> 'dropped'"`
	Status    EnrollmentStatus `json:"status" gorm:"not null;size:20;default:active;index"`
	Progress  int              `json:"progress" gorm:"not null;default:0"`

	EnrolledAt  time.Time  `json:"enrolled_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at"`
	DroppedAt   *time.Time `json:"dropped_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Student User   `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Course  Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

// LessonCompletion marks one lesson done for one enrollment. The unique index
// makes completion idempotent: a repeat insert is a no-op for progress.
type LessonCompletion struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EnrollmentID uint      `json:"enrollment_id" gorm:"not null;index:idx_lesson_completion_once,unique"`
	LessonID     uint      `json:"lesson_id" gorm:"not null;index:idx_lesson_completion_once,unique"`
	CompletedAt  time.Time `json:"completed_at" gorm:"not null"`
}

// AssignmentSubmission holds the graded score for one assignment of one
// enrollment. Score stays null until graded; grading is one-way.
type AssignmentSubmission struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	EnrollmentID uint     `json:"enrollment_id" gorm:"not null;index:idx_submission_once,unique"`
	AssignmentID uint     `json:"assignment_id" gorm:"not null;index:idx_submission_once,unique"`
	Score        *float64 `json:"score"`
	MaxScore     float64  `json:"max_score" gorm:"not null"`

	SubmittedAt time.Time  `json:"submitted_at" gorm:"not null"`
	GradedAt    *time.Time `json:"graded_at"`
	GradedBy    *string    `json:"graded_by" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}

// IsActive reports whether progress may still be recorded.
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}

// IsGraded reports whether the submission already received its one grade.
func (s *AssignmentSubmission) IsGraded() bool {
	return s.GradedAt != nil
}
