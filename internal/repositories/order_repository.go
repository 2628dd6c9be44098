package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "alignbill/internal/models/db_models"
)

type IOrderRepository interface {
	Create(ctx context.Context, order *dbm.Order) error
	GetByID(ctx context.Context, orderID string) (*dbm.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*dbm.Order, error)
	FindPendingByTriple(ctx context.Context, userID, kitProductID, alignerProductID, planID uuid.UUID) (*dbm.Order, error)
	List(ctx context.Context, page, pageSize int) ([]dbm.Order, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]dbm.Order, error)

	// UpdateStatusIf is the per-order serialization point: the row only
	// changes when it is still in the expected status, so two racing
	// transitions cannot both win.
	UpdateStatusIf(ctx context.Context, orderID uuid.UUID, from dbm.OrderStatus, updates map[string]interface{}) (bool, error)

	// CancelCascade flips the order to cancelled and, in the same
	// transaction, cancels its still-pending payments and its
	// subscription. Returns false when the order was already terminal.
	CancelCascade(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) IOrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *dbm.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*dbm.Order, error) {
	var order dbm.Order
	err := r.db.WithContext(ctx).
		Preload("InstallmentPlan").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*dbm.Order, error) {
	var order dbm.Order
	err := r.db.WithContext(ctx).
		First(&order, "idempotency_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindPendingByTriple(ctx context.Context, userID, kitProductID, alignerProductID, planID uuid.UUID) (*dbm.Order, error) {
	var order dbm.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kit_product_id = ? AND aligner_product_id = ? AND installment_plan_id = ? AND status = ?",
			userID, kitProductID, alignerProductID, planID, dbm.OrderStatusPending).
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]dbm.Order, int64, error) {
	var orders []dbm.Order
	var total int64

	if err := r.db.WithContext(ctx).Model(&dbm.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("InstallmentPlan").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]dbm.Order, error) {
	var orders []dbm.Order
	err := r.db.WithContext(ctx).
		Preload("InstallmentPlan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, orderID uuid.UUID, from dbm.OrderStatus, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&dbm.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) CancelCascade(ctx context.Context, orderID uuid.UUID) (bool, error) {
	cancelled := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbm.Order{}).
			Where("id = ? AND status NOT IN ?", orderID,
				[]dbm.OrderStatus{dbm.OrderStatusCompleted, dbm.OrderStatusCancelled}).
			Update("status", dbm.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cancelled = true

		if err := tx.Model(&dbm.Payment{}).
			Where("order_id = ? AND status = ?", orderID, dbm.PaymentStatusPending).
			Update("status", dbm.PaymentStatusCancelled).Error; err != nil {
			return err
		}

		return tx.Model(&dbm.Subscription{}).
			Where("order_id = ? AND status IN ?", orderID,
				[]dbm.SubscriptionStatus{dbm.SubStatusActive, dbm.SubStatusPastDue}).
			Update("status", dbm.SubStatusCancelled).Error
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}
