package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentCaptured      PaymentStatus = "captured"
	PaymentDeclined      PaymentStatus = "declined"
	PaymentRefundPending PaymentStatus = "refund_pending"
	PaymentRefunded      PaymentStatus = "refunded"
)

// CoursePayment records one charge attempt against the payment gateway.
// A captured payment whose enrollment lost the uniqueness race is flipped to
// refund_pending and reconciled out-of-band, so a charge is never silently
// kept without an enrollment.
type CoursePayment struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	StudentID    string        `json:"student_id" gorm:"not null;index;size:36"`
	CourseID     uint          `json:"course_id" gorm:"not null;index"`
	EnrollmentID *uint         `json:"enrollment_id" gorm:"index"`
	AmountCents  int64         `json:"amount_cents" gorm:"not null"`
	Currency     string        `json:"currency" gorm:"not null;size:3"`
	Status       PaymentStatus `json:"status" gorm:"not null;size:20;index"`

	// Gateway references
	Provider    string         `json:"provider" gorm:"not null;size:50"`
	ProviderRef string         `json:"provider_ref" gorm:"size:100;index"`
	Metadata    datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CoursePayment) TableName() string {
	return "course_payments"
}
