package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateEnrollmentCache drops everything derived from one enrollment,
// including the student's enrollment list.
func InvalidateEnrollmentCache(ctx context.Context, cm *CacheManager, enrollmentID uint, studentID string) {
	SafeDelete(ctx, cm.Enrollment,
		fmt.Sprintf("id:%d", enrollmentID),
		fmt.Sprintf("details:%d", enrollmentID))
	SafeInvalidatePattern(ctx, cm.Enrollment, fmt.Sprintf("student:%s:*", studentID))
}
