package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "alignbill/internal/models/db_models"
)

type IPaymentRepository interface {
	Create(ctx context.Context, payment *dbm.Payment) error
	GetByProviderTxnID(ctx context.Context, providerTxnID string) (*dbm.Payment, error)
	GetInitialByOrder(ctx context.Context, orderID uuid.UUID) (*dbm.Payment, error)

	// ListByOrder returns the initial payment first, then installments
	// ordered by installment number.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]dbm.Payment, error)

	UpdateStatus(ctx context.Context, paymentID uuid.UUID, status dbm.PaymentStatus, paidAt *int64) error
	Update(ctx context.Context, paymentID uuid.UUID, updates map[string]interface{}) error

	// MarkSettledThrough marks installments 1..n succeeded. Used by
	// reconciliation when the provider reports n completed cycles.
	MarkSettledThrough(ctx context.Context, orderID uuid.UUID, n int) error

	// MarkEarliestPendingPastDue flags the next unpaid installment when
	// the provider reports the schedule past due.
	MarkEarliestPendingPastDue(ctx context.Context, orderID uuid.UUID) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) IPaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *dbm.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByProviderTxnID(ctx context.Context, providerTxnID string) (*dbm.Payment, error) {
	var payment dbm.Payment
	err := r.db.WithContext(ctx).
		First(&payment, "provider_txn_id = ?", providerTxnID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetInitialByOrder(ctx context.Context, orderID uuid.UUID) (*dbm.Payment, error) {
	var payment dbm.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND is_initial = ?", orderID, true).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]dbm.Payment, error) {
	var payments []dbm.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("is_initial DESC, installment_number ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID uuid.UUID, status dbm.PaymentStatus, paidAt *int64) error {
	updates := map[string]interface{}{"status": status}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	return r.db.WithContext(ctx).
		Model(&dbm.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

func (r *paymentRepository) Update(ctx context.Context, paymentID uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&dbm.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

func (r *paymentRepository) MarkSettledThrough(ctx context.Context, orderID uuid.UUID, n int) error {
	now := time.Now().Unix()
	return r.db.WithContext(ctx).
		Model(&dbm.Payment{}).
		Where("order_id = ? AND is_initial = ? AND installment_number <= ? AND status <> ?",
			orderID, false, n, dbm.PaymentStatusSucceeded).
		Updates(map[string]interface{}{
			"status":  dbm.PaymentStatusSucceeded,
			"paid_at": now,
		}).Error
}

func (r *paymentRepository) MarkEarliestPendingPastDue(ctx context.Context, orderID uuid.UUID) error {
	var next dbm.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND is_initial = ? AND status = ?",
			orderID, false, dbm.PaymentStatusPending).
		Order("installment_number ASC").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return r.db.WithContext(ctx).
		Model(&next).
		Update("status", dbm.PaymentStatusPastDue).Error
}
