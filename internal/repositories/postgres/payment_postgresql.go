package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/repositories"
)

type PaymentPostgreSQL struct {
	db *gorm.DB
}

func NewPaymentPostgreSQL(db *gorm.DB) repositories.PaymentRepository {
	return &PaymentPostgreSQL{db: db}
}

func (p *PaymentPostgreSQL) Create(ctx context.Context, payment *models.CoursePayment) error {
	return p.db.WithContext(ctx).Create(payment).Error
}

func (p *PaymentPostgreSQL) Update(ctx context.Context, payment *models.CoursePayment) error {
	return p.db.WithContext(ctx).Save(payment).Error
}

func (p *PaymentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.CoursePayment, error) {
	var payment models.CoursePayment
	if err := p.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) GetByStudent(ctx context.Context, studentID string) ([]*models.CoursePayment, error) {
	var payments []*models.CoursePayment
	err := p.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&payments).Error
	return payments, err
}
