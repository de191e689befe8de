package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/edumart/enrollment-service/internal/cache"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var course models.Course

	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := c.db.WithContext(ctx).First(&dbCourse, id).Error; err != nil {
			return nil, err
		}
		return &dbCourse, nil
	})

	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CoursePostgreSQL) GetByIDWithUnits(ctx context.Context, id uint) (*models.Course, error) {
	cacheKey := fmt.Sprintf("units:%d", id)
	var course models.Course

	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := c.db.WithContext(ctx).
			Preload("Lessons").
			Preload("Assignments").
			First(&dbCourse, id).Error; err != nil {
			return nil, err
		}
		return &dbCourse, nil
	})

	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CoursePostgreSQL) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	if err := c.db.WithContext(ctx).First(&course, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &course, nil
}
