package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "alignbill/internal/models/db_models"
)

type ISubscriptionRepository interface {
	GetByID(ctx context.Context, subID string) (*dbm.Subscription, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*dbm.Subscription, error)

	// ActivateWithSchedule flips the order from aligner_ready to
	// subscription_active and, in the same transaction, creates the
	// subscription row and all of its pre-materialized installment
	// payments. Returns false when the status guard lost the race.
	ActivateWithSchedule(ctx context.Context, orderID uuid.UUID, startDate int64, sub *dbm.Subscription, payments []*dbm.Payment) (bool, error)

	Update(ctx context.Context, sub *dbm.Subscription, updates map[string]interface{}) error

	// ListSyncable returns subscriptions that still track an external
	// schedule, oldest updates first, bounded for batch sweeps.
	ListSyncable(ctx context.Context, limit int) ([]dbm.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) ISubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByID(ctx context.Context, subID string) (*dbm.Subscription, error) {
	var sub dbm.Subscription
	err := r.db.WithContext(ctx).
		Preload("Order").
		First(&sub, "id = ?", subID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*dbm.Subscription, error) {
	var sub dbm.Subscription
	err := r.db.WithContext(ctx).
		First(&sub, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ActivateWithSchedule(ctx context.Context, orderID uuid.UUID, startDate int64, sub *dbm.Subscription, payments []*dbm.Payment) (bool, error) {
	activated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbm.Order{}).
			Where("id = ? AND status = ?", orderID, dbm.OrderStatusAlignerReady).
			Updates(map[string]interface{}{
				"status":                  dbm.OrderStatusSubscriptionActive,
				"subscription_start_date": startDate,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		activated = true

		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		for _, p := range payments {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return activated, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *dbm.Subscription, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(sub).
		Updates(updates).Error
}

func (r *subscriptionRepository) ListSyncable(ctx context.Context, limit int) ([]dbm.Subscription, error) {
	var subs []dbm.Subscription
	err := r.db.WithContext(ctx).
		Where("status IN ?", []dbm.SubscriptionStatus{dbm.SubStatusActive, dbm.SubStatusPastDue}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
