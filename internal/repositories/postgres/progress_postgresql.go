package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

// CreateLessonCompletion inserts the completion marker. A repeat completion
// hits the (enrollment_id, lesson_id) unique index and surfaces as
// gorm.ErrDuplicatedKey, which the service treats as idempotent success.
func (p *ProgressPostgreSQL) CreateLessonCompletion(ctx context.Context, completion *models.LessonCompletion) error {
	return p.db.WithContext(ctx).Create(completion).Error
}

func (p *ProgressPostgreSQL) GetLessonCompletions(ctx context.Context, enrollmentID uint) ([]*models.LessonCompletion, error) {
	var completions []*models.LessonCompletion
	err := p.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("completed_at asc").
		Find(&completions).Error
	return completions, err
}

func (p *ProgressPostgreSQL) CreateSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	return p.db.WithContext(ctx).Create(submission).Error
}

func (p *ProgressPostgreSQL) UpdateSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	return p.db.WithContext(ctx).Save(submission).Error
}

func (p *ProgressPostgreSQL) GetSubmission(ctx context.Context, enrollmentID, assignmentID uint) (*models.AssignmentSubmission, error) {
	var submission models.AssignmentSubmission
	if err := p.db.WithContext(ctx).
		Where("enrollment_id = ? AND assignment_id = ?", enrollmentID, assignmentID).
		First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (p *ProgressPostgreSQL) GetSubmissions(ctx context.Context, enrollmentID uint) ([]*models.AssignmentSubmission, error) {
	var submissions []*models.AssignmentSubmission
	err := p.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("submitted_at asc").
		Find(&submissions).Error
	return submissions, err
}
