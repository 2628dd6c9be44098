package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alignbill/internal/models/db_models"
)

type IFeedbackRepository interface {
	Create(ctx context.Context, feedback *db_models.Feedback) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*db_models.Feedback, error)
	List(ctx context.Context, page, pageSize int) ([]db_models.Feedback, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) IFeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *db_models.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *feedbackRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*db_models.Feedback, error) {
	var feedback db_models.Feedback
	err := r.db.WithContext(ctx).First(&feedback, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) List(ctx context.Context, page, pageSize int) ([]db_models.Feedback, error) {
	var feedbacks []db_models.Feedback
	err := r.db.WithContext(ctx).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Order("created_at DESC").
		Find(&feedbacks).Error
	return feedbacks, err
}
