package services

import (
	"errors"
	"fmt"
)

// Sentinel errors form the closed taxonomy the API layer maps to transport
// responses with errors.Is. Nothing here is fatal to the process; every
// failure is scoped to one request.
var (
	// Client-correctable enrollment failures
	ErrAlreadyEnrolled    = errors.New("student already has an active or completed enrollment for this course")
	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseUnavailable  = errors.New("course is not published")
	ErrPremiumCourse      = errors.New("course requires payment")
	ErrPaymentDeclined    = errors.New("payment was declined")
	ErrEmailTaken         = errors.New("email already has an account")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Progress policy violations
	ErrEnrollmentNotFound    = errors.New("enrollment not found")
	ErrEnrollmentNotActive   = errors.New("enrollment is not active")
	ErrLessonNotInCourse     = errors.New("lesson does not belong to the enrolled course")
	ErrAssignmentNotInCourse = errors.New("assignment does not belong to the enrolled course")
	ErrAlreadyGraded         = errors.New("submission has already been graded")
	ErrInvalidScore          = errors.New("score is invalid for the given max score")

	// Certificate policy violations
	ErrNotEligible         = errors.New("enrollment is not completed")
	ErrDuplicateRequest    = errors.New("a certificate request is already pending for this enrollment")
	ErrAlreadyIssued       = errors.New("a certificate was already issued for this enrollment")
	ErrCertificateNotFound = errors.New("certificate request not found")

	// Authorization
	ErrForbidden = errors.New("caller is not allowed to perform this action")

	// Concurrency: the caller lost a race against another state change and
	// should refetch. Never retried automatically for issue/reject.
	ErrConflict = errors.New("request state changed concurrently")

	ErrUserNotFound = errors.New("user not found")
)

// PermissionError carries the context of a failed authorization check while
// still matching ErrForbidden via errors.Is.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}
