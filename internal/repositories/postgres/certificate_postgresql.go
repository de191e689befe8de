package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/edumart/enrollment-service/internal/cache"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

type CertificatePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCertificatePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CertificateRepository {
	return &CertificatePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create inserts a new pending request. The partial unique index on
// enrollment_id where status <> 'rejected' rejects a concurrent duplicate.
func (c *CertificatePostgreSQL) Create(ctx context.Context, request *models.CertificateRequest) error {
	return c.db.WithContext(ctx).Create(request).Error
}

func (c *CertificatePostgreSQL) GetByID(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	var request models.CertificateRequest
	if err := c.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *CertificatePostgreSQL) GetByIDWithEnrollment(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	var request models.CertificateRequest
	if err := c.db.WithContext(ctx).
		Preload("Enrollment").
		Preload("Enrollment.Course").
		Preload("Enrollment.Student").
		First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *CertificatePostgreSQL) GetOpenByEnrollment(ctx context.Context, enrollmentID uint) (*models.CertificateRequest, error) {
	var request models.CertificateRequest
	if err := c.db.WithContext(ctx).
		Where("enrollment_id = ? AND status <> ?", enrollmentID, models.CertificateRejected).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByVerificationCode is the public verification lookup. Issued requests
// are immutable, so the result is cached long.
func (c *CertificatePostgreSQL) GetByVerificationCode(ctx context.Context, code string) (*models.CertificateRequest, error) {
	cacheKey := fmt.Sprintf("code:%s", code)
	var request models.CertificateRequest

	err := c.cacheManager.Verify.CacheOrExecute(ctx, cacheKey, &request, cache.VerifyCacheConfig.TTL, func() (interface{}, error) {
		var dbRequest models.CertificateRequest
		if err := c.db.WithContext(ctx).
			Preload("Enrollment").
			Preload("Enrollment.Course").
			Preload("Enrollment.Student").
			Where("verification_code = ? AND status = ?", code, models.CertificateIssued).
			First(&dbRequest).Error; err != nil {
			return nil, err
		}
		return &dbRequest, nil
	})

	if err != nil {
		return nil, err
	}
	return &request, nil
}

// MarkIssued performs the pending -> issued transition with a conditional
// update so that exactly one concurrent reviewer wins. A verification-code
// collision surfaces as gorm.ErrDuplicatedKey for the caller to retry.
func (c *CertificatePostgreSQL) MarkIssued(ctx context.Context, id uint, code string, reviewerID string, at time.Time) (bool, error) {
	result := c.db.WithContext(ctx).
		Model(&models.CertificateRequest{}).
		Where("id = ? AND status = ?", id, models.CertificatePending).
		Updates(map[string]interface{}{
			"status":            models.CertificateIssued,
			"verification_code": code,
			"issued_at":         at,
			"reviewed_by":       reviewerID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (c *CertificatePostgreSQL) MarkRejected(ctx context.Context, id uint, reviewerID string, at time.Time) (bool, error) {
	result := c.db.WithContext(ctx).
		Model(&models.CertificateRequest{}).
		Where("id = ? AND status = ?", id, models.CertificatePending).
		Updates(map[string]interface{}{
			"status":      models.CertificateRejected,
			"rejected_at": at,
			"reviewed_by": reviewerID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (c *CertificatePostgreSQL) List(ctx context.Context, filters repositories.CertificateRequestFilters) ([]*models.CertificateRequest, int64, error) {
	var requests []*models.CertificateRequest
	var total int64

	query := c.db.WithContext(ctx).
		Model(&models.CertificateRequest{}).
		Joins("JOIN enrollments ON enrollments.id = certificate_requests.enrollment_id").
		Joins("JOIN courses ON courses.id = enrollments.course_id")

	if filters.Status != nil {
		query = query.Where("certificate_requests.status = ?", *filters.Status)
	}
	if filters.CourseID != nil {
		query = query.Where("enrollments.course_id = ?", *filters.CourseID)
	}
	if filters.InstructorID != nil {
		query = query.Where("courses.instructor_id = ?", *filters.InstructorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "certificate_requests.requested_at desc")

	if err := query.
		Preload("Enrollment").
		Preload("Enrollment.Course").
		Preload("Enrollment.Student").
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
