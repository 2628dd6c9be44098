package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"alignbill/internal/models/db_models"
	"alignbill/internal/repositories"
	"alignbill/pkg/utils"
)

type FeedbackService interface {
	AddFeedback(ctx context.Context, userID uuid.UUID, orderID string, comment string, rating int) error
	ListFeedback(ctx context.Context, page, pageSize int) ([]db_models.Feedback, error)
}

type feedbackService struct {
	feedbacks repositories.IFeedbackRepository
	orders    repositories.IOrderRepository
}

func NewFeedbackService(feedbacks repositories.IFeedbackRepository, orders repositories.IOrderRepository) FeedbackService {
	return &feedbackService{feedbacks: feedbacks, orders: orders}
}

func (s *feedbackService) AddFeedback(ctx context.Context, userID uuid.UUID, orderID string, comment string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", utils.ErrValidation)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return fmt.Errorf("%w: order %s", utils.ErrRecordNotFound, orderID)
	}
	if order.UserID != userID {
		return fmt.Errorf("%w: order %s does not belong to this account", utils.ErrValidation, orderID)
	}
	if order.Status != db_models.OrderStatusCompleted {
		return fmt.Errorf("%w: feedback is only accepted on completed orders", utils.ErrInvalidState)
	}

	existing, err := s.feedbacks.GetByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if existing != nil {
		return fmt.Errorf("%w: order %s already has feedback", utils.ErrInvalidState, orderID)
	}

	feedback := &db_models.Feedback{
		OrderID: order.ID,
		UserID:  userID,
		Comment: comment,
		Rating:  rating,
	}
	if err := s.feedbacks.Create(ctx, feedback); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (s *feedbackService) ListFeedback(ctx context.Context, page, pageSize int) ([]db_models.Feedback, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, utils.ErrInvalidPageSize
	}
	feedbacks, err := s.feedbacks.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return feedbacks, nil
}
