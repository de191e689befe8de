package validator

// EnrollRequest starts the free enrollment path for an authenticated student.
type EnrollRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

// PaymentDetailsRequest carries the tokenized card handed over by the UI.
// Raw card numbers never reach this service.
type PaymentDetailsRequest struct {
	CardToken string `json:"card_token" validate:"required,max=100"`
	Method    string `json:"method" validate:"required,oneof=card wallet"`
}

// EnrollWithPaymentRequest starts the premium enrollment path.
type EnrollWithPaymentRequest struct {
	CourseID       uint                   `json:"course_id" validate:"required"`
	PaymentDetails *PaymentDetailsRequest `json:"payment_details" validate:"required"`
}

// SignupProfileRequest is the account half of the combined signup+enroll path.
type SignupProfileRequest struct {
	FullName string  `json:"full_name" validate:"required,min=1,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,signup_password,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
}

// SignupAndEnrollRequest combines a new account with its first enrollment.
// PaymentDetails is required only when the course is premium; the service
// enforces that, not the tag.
type SignupAndEnrollRequest struct {
	Profile        SignupProfileRequest   `json:"profile" validate:"required"`
	CourseID       uint                   `json:"course_id" validate:"required"`
	PaymentDetails *PaymentDetailsRequest `json:"payment_details" validate:"omitempty"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RecordLessonRequest marks one lesson complete for an enrollment.
type RecordLessonRequest struct {
	EnrollmentID uint `json:"enrollment_id" validate:"required"`
	LessonID     uint `json:"lesson_id" validate:"required"`
}

// RecordAssignmentGradeRequest records the one-time grade for a submission.
type RecordAssignmentGradeRequest struct {
	EnrollmentID uint    `json:"enrollment_id" validate:"required"`
	AssignmentID uint    `json:"assignment_id" validate:"required"`
	Score        float64 `json:"score" validate:"min=0"`
	MaxScore     float64 `json:"max_score" validate:"required,max_score"`
}

// CertificateRequestRequest opens a review request for a completed enrollment.
type CertificateRequestRequest struct {
	EnrollmentID uint `json:"enrollment_id" validate:"required"`
}
