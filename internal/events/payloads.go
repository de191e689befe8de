package events

import "time"

// EnrollmentEvent is the payload for enrollment lifecycle events.
type EnrollmentEvent struct {
	EnrollmentID uint      `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     uint      `json:"course_id"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// CertificateEvent is the payload for certificate lifecycle events.
type CertificateEvent struct {
	RequestID        uint      `json:"request_id"`
	EnrollmentID     uint      `json:"enrollment_id"`
	StudentID        string    `json:"student_id"`
	CourseID         uint      `json:"course_id"`
	Status           string    `json:"status"`
	VerificationCode string    `json:"verification_code,omitempty"`
	ReviewedBy       string    `json:"reviewed_by,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// PaymentEvent is the payload for payment reconciliation events.
type PaymentEvent struct {
	PaymentID   uint      `json:"payment_id"`
	StudentID   string    `json:"student_id"`
	CourseID    uint      `json:"course_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
