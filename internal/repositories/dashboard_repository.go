package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	dbm "alignbill/internal/models/db_models"
)

type IDashboardRepository interface {
	CountTotalAccounts(ctx context.Context) (int64, error)
	CountNewAccounts(ctx context.Context, start, end time.Time) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context, status dbm.OrderStatus) (int64, error)
	CountSubscriptionsByStatus(ctx context.Context, status dbm.SubscriptionStatus) (int64, error)

	// RevenueMinor sums succeeded payments settled within the range.
	RevenueMinor(ctx context.Context, start, end time.Time) (int64, error)
	// OutstandingMinor sums installments still pending or past due.
	OutstandingMinor(ctx context.Context) (int64, error)

	RevenueSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error)
	NewAccountsSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error)
	NewOrdersSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error)

	PlanMix(ctx context.Context) ([]PlanMixRow, error)
	RecentPayments(ctx context.Context, limit int) ([]RecentPaymentRow, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) IDashboardRepository {
	return &dashboardRepository{db: db}
}

type BucketSum struct {
	Bucket time.Time `gorm:"column:bucket"`
	Sum    int64     `gorm:"column:sum"`
}

type PlanMixRow struct {
	PlanID   string `gorm:"column:plan_id"`
	PlanCode string `gorm:"column:plan_code"`
	Count    int64  `gorm:"column:count"`
}

type RecentPaymentRow struct {
	ID            string `gorm:"column:id"`
	PaidAt        int64  `gorm:"column:paid_at"`
	AmountMinor   int64  `gorm:"column:amount_minor"`
	Currency      string `gorm:"column:currency"`
	Status        string `gorm:"column:status"`
	ProviderTxnID string `gorm:"column:provider_txn_id"`
	AccountEmail  string `gorm:"column:email"`
}

// dateTrunc buckets a unix-seconds column; Postgres only.
func dateTrunc(tz string, unixColumn string) string {
	if tz == "" {
		return "date_trunc(?, to_timestamp(" + unixColumn + "))"
	}
	return "date_trunc(?, timezone(?, to_timestamp(" + unixColumn + ")))"
}

func (r *dashboardRepository) CountTotalAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Account{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountNewAccounts(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Account{}).
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Order{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountOrdersByStatus(ctx context.Context, status dbm.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Order{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountSubscriptionsByStatus(ctx context.Context, status dbm.SubscriptionStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Subscription{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) RevenueMinor(ctx context.Context, start, end time.Time) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Payment{}).
		Select("COALESCE(SUM(amount_minor), 0)").
		Where("status = ?", dbm.PaymentStatusSucceeded).
		Where("paid_at IS NOT NULL AND paid_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Scan(&sum).Error
	return sum, err
}

func (r *dashboardRepository) OutstandingMinor(ctx context.Context) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Payment{}).
		Select("COALESCE(SUM(amount_minor), 0)").
		Where("installment_number IS NOT NULL").
		Where("status IN ?", []dbm.PaymentStatus{dbm.PaymentStatusPending, dbm.PaymentStatusPastDue}).
		Scan(&sum).Error
	return sum, err
}

func (r *dashboardRepository) RevenueSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error) {
	var rows []BucketSum
	err := r.db.WithContext(ctx).
		Table("payments").
		Select(dateTrunc(tz, "paid_at")+" AS bucket, SUM(amount_minor) AS sum", interval, tz).
		Where("status = ?", dbm.PaymentStatusSucceeded).
		Where("paid_at IS NOT NULL").
		Where("paid_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Group("bucket").
		Order("bucket ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) NewAccountsSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error) {
	var rows []BucketSum
	err := r.db.WithContext(ctx).
		Table("accounts").
		Select(dateTrunc(tz, "created_at")+" AS bucket, COUNT(*) AS sum", interval, tz).
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Group("bucket").
		Order("bucket ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) NewOrdersSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error) {
	var rows []BucketSum
	err := r.db.WithContext(ctx).
		Table("orders").
		Select(dateTrunc(tz, "created_at")+" AS bucket, COUNT(*) AS sum", interval, tz).
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Group("bucket").
		Order("bucket ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) PlanMix(ctx context.Context) ([]PlanMixRow, error) {
	var rows []PlanMixRow
	err := r.db.WithContext(ctx).
		Table("orders o").
		Select("o.installment_plan_id AS plan_id, p.code AS plan_code, COUNT(*) AS count").
		Joins("JOIN installment_plans p ON p.id = o.installment_plan_id").
		Where("o.status <> ?", dbm.OrderStatusCancelled).
		Group("o.installment_plan_id, p.code").
		Order("count DESC").
		Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) RecentPayments(ctx context.Context, limit int) ([]RecentPaymentRow, error) {
	var rows []RecentPaymentRow
	err := r.db.WithContext(ctx).
		Table("payments pay").
		Select(`
			pay.id,
			pay.paid_at,
			pay.amount_minor,
			pay.currency,
			pay.status,
			pay.provider_txn_id,
			a.email`).
		Joins("JOIN orders o ON o.id = pay.order_id").
		Joins("LEFT JOIN accounts a ON a.id = o.user_id").
		Where("pay.status = ?", dbm.PaymentStatusSucceeded).
		Where("pay.paid_at IS NOT NULL").
		Order("pay.paid_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
