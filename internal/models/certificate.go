package models

import (
	"time"
)

type CertificateRequestStatus string

const (
	CertificatePending  CertificateRequestStatus = "pending"
	CertificateIssued   CertificateRequestStatus = "issued"
	CertificateRejected CertificateRequestStatus = "rejected"
)

// CertificateRequest is the per-enrollment review state machine:
// pending -> issued (terminal) or pending -> rejected (a new pending request
// may be opened later). The partial unique index allows exactly one
// non-rejected request per enrollment; the verification code index makes
// issued codes globally unique.
type CertificateRequest struct {
	ID           uint                     `json:"id" gorm:"primaryKey"`
	EnrollmentID uint                     `json:"enrollment_id" gorm:"not null;index;index:idx_open_certificate_request,unique,where:status <> 'rejected'"`
	Status       CertificateRequestStatus `json:"status" gorm:"not null;size:20;default:pending;index"`

	// Set exactly once, at the pending -> issued transition.
	VerificationCode *string `json:"verification_code" gorm:"uniqueIndex;size:16"`

	RequestedAt time.Time  `json:"requested_at" gorm:"not null"`
	IssuedAt    *time.Time `json:"issued_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
	ReviewedBy  *string    `json:"reviewed_by" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Enrollment Enrollment `json:"enrollment,omitempty" gorm:"foreignKey:EnrollmentID"`
}

func (CertificateRequest) TableName() string {
	return "certificate_requests"
}

// IsTerminal reports whether the request can no longer change state.
// A rejected request never changes again, though the student may still
// open a new one for the same enrollment.
func (r *CertificateRequest) IsTerminal() bool {
	return r.Status != CertificatePending
}
