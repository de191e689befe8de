package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edumart/enrollment-service/internal/cache"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create inserts the enrollment. The partial unique index on
// (student_id, course_id) where status <> 'dropped' rejects a concurrent
// duplicate with gorm.ErrDuplicatedKey.
func (e *EnrollmentPostgreSQL) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if err := e.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return err
	}
	cache.InvalidateEnrollmentCache(ctx, e.cacheManager, enrollment.ID, enrollment.StudentID)
	return nil
}

func (e *EnrollmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) GetByIDWithCourse(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Lessons").
		Preload("Course.Assignments").
		Preload("Student").
		First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) GetCurrentByPair(ctx context.Context, studentID string, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND status <> ?", studentID, courseID, models.EnrollmentDropped).
		First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateProgress raises progress only while the row is active and the new
// value is higher, so a recompute working from a stale read can never lower
// a committed value or touch a terminal row.
func (e *EnrollmentPostgreSQL) UpdateProgress(ctx context.Context, enrollment *models.Enrollment, progress int) (bool, error) {
	result := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ? AND progress < ?", enrollment.ID, models.EnrollmentActive, progress).
		Update("progress", progress)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateEnrollmentCache(ctx, e.cacheManager, enrollment.ID, enrollment.StudentID)
	return true, nil
}

// MarkCompleted performs the active -> completed transition as a conditional
// update; the RowsAffected check makes exactly one concurrent writer win.
func (e *EnrollmentPostgreSQL) MarkCompleted(ctx context.Context, enrollment *models.Enrollment, at time.Time) (bool, error) {
	result := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":       models.EnrollmentCompleted,
			"progress":     100,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateEnrollmentCache(ctx, e.cacheManager, enrollment.ID, enrollment.StudentID)
	return true, nil
}

// MarkDropped performs the active -> dropped transition as a conditional
// update, so a drop can never overwrite a concurrently completed row.
func (e *EnrollmentPostgreSQL) MarkDropped(ctx context.Context, enrollment *models.Enrollment, at time.Time) (bool, error) {
	result := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":     models.EnrollmentDropped,
			"dropped_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateEnrollmentCache(ctx, e.cacheManager, enrollment.ID, enrollment.StudentID)
	return true, nil
}

func (e *EnrollmentPostgreSQL) GetByStudent(ctx context.Context, studentID string, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	var enrollments []*models.Enrollment
	var total int64

	// apply filter first
	query := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ?", studentID)
	query = applyEnrollmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "enrolled_at desc")

	if err := query.Preload("Course").Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}

	return enrollments, total, nil
}

func (e *EnrollmentPostgreSQL) GetByCourse(ctx context.Context, courseID uint, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	var enrollments []*models.Enrollment
	var total int64

	query := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID)
	query = applyEnrollmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "enrolled_at desc")

	if err := query.Preload("Student").Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}

	return enrollments, total, nil
}

func applyEnrollmentFilters(query *gorm.DB, filters repositories.EnrollmentFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.DateFrom != nil {
		query = query.Where("enrolled_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("enrolled_at <= ?", *filters.DateTo)
	}
	return query
}
