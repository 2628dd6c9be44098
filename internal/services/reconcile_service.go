package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redsync/redsync/v4"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/models/response_models"
	"alignbill/internal/providers"
	"alignbill/internal/repositories"
	"alignbill/pkg/utils"
)

const (
	// DefaultSyncLimit bounds one sweep's external-API fan-out.
	DefaultSyncLimit = 50
	MaxSyncLimit     = 200

	sweepLockName   = "alignbill:reconcile:sweep"
	sweepLockExpiry = 5 * time.Minute
)

// ReconcileService resynchronizes local subscriptions with the payment
// provider, which is the authoritative source for whether money moved.
// It runs independently of webhook delivery.
type ReconcileService interface {
	SyncSubscription(ctx context.Context, subID string) (*dbm.Subscription, error)
	SyncBatch(ctx context.Context, limit int) (*response_models.ReconcileReport, error)

	// RunSweep is SyncBatch behind a distributed lock so overlapping
	// triggers (cron tick plus an operator request) never run twice.
	RunSweep(ctx context.Context) (*response_models.ReconcileReport, error)
}

type reconcileService struct {
	subs     repositories.ISubscriptionRepository
	payments repositories.IPaymentRepository
	orders   repositories.IOrderRepository
	orderSvc OrderService
	provider providers.PaymentProvider

	// nil disables sweep locking (single-node test setups)
	locker *redsync.Redsync

	providerTimeout time.Duration
}

func NewReconcileService(
	subs repositories.ISubscriptionRepository,
	payments repositories.IPaymentRepository,
	orders repositories.IOrderRepository,
	orderSvc OrderService,
	provider providers.PaymentProvider,
	locker *redsync.Redsync,
) ReconcileService {
	return &reconcileService{
		subs:            subs,
		payments:        payments,
		orders:          orders,
		orderSvc:        orderSvc,
		provider:        provider,
		locker:          locker,
		providerTimeout: 15 * time.Second,
	}
}

func (s *reconcileService) SyncSubscription(ctx context.Context, subID string) (*dbm.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: subscription %s", utils.ErrRecordNotFound, subID)
	}
	if sub.ProviderScheduleID == "" {
		return nil, fmt.Errorf("%w: subscription %s has no provider schedule", utils.ErrConsistency, subID)
	}

	order, err := s.orders.GetByID(ctx, sub.OrderID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: subscription %s references missing order %s", utils.ErrConsistency, subID, sub.OrderID)
	}

	cctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	view, err := s.provider.GetScheduleStatus(cctx, sub.ProviderScheduleID)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule status: %v", utils.ErrProvider, err)
	}

	// The provider's completed count overwrites the local one; a count
	// outside [0, total] is irreconcilable and local state stays put.
	completed := view.CompletedCount
	if completed < 0 || completed > sub.TotalInstallments {
		return nil, fmt.Errorf("%w: provider reports %d completed cycles for %d installments (subscription %s)",
			utils.ErrConsistency, completed, sub.TotalInstallments, subID)
	}

	status := sub.Status
	switch view.Status {
	case providers.ScheduleActive:
		if completed >= sub.TotalInstallments {
			status = dbm.SubStatusCompleted
		} else {
			status = dbm.SubStatusActive
		}
	case providers.ScheduleCanceled, "cancelled":
		status = dbm.SubStatusCancelled
	case providers.SchedulePastDue, providers.ScheduleIncomplete:
		status = dbm.SubStatusPastDue
	case providers.ScheduleCompleted:
		if completed != sub.TotalInstallments {
			return nil, fmt.Errorf("%w: provider reports schedule complete with %d/%d cycles (subscription %s)",
				utils.ErrConsistency, completed, sub.TotalInstallments, subID)
		}
		status = dbm.SubStatusCompleted
	default:
		// Unknown provider status: heal the count, keep the status,
		// and let an operator look instead of guessing.
		log.Printf("reconcile: subscription %s has unrecognized provider status %q, leaving status %s",
			subID, view.Status, sub.Status)
	}

	updates := map[string]interface{}{
		"completed_installments": completed,
		"status":                 status,
	}
	if status == dbm.SubStatusActive {
		if next := s.nextBillingDate(ctx, sub, order, view, completed); next != nil {
			updates["next_billing_date"] = *next
		}
	} else {
		updates["next_billing_date"] = nil
	}

	if err := s.subs.Update(ctx, sub, updates); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	sub.CompletedInstallments = completed
	sub.Status = status

	if completed > 0 {
		if err := s.payments.MarkSettledThrough(ctx, sub.OrderID, completed); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
	}
	if status == dbm.SubStatusPastDue {
		if err := s.payments.MarkEarliestPendingPastDue(ctx, sub.OrderID); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
	}

	if status == dbm.SubStatusCompleted && order.Status == dbm.OrderStatusSubscriptionActive {
		if _, err := s.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusCompleted); err != nil {
			// Already completed elsewhere is fine; anything else is not.
			if !errors.Is(err, utils.ErrInvalidState) {
				return nil, err
			}
		}
	}
	return sub, nil
}

// nextBillingDate prefers the provider's period end plus one period;
// providers that don't expose period boundaries fall back to the
// pre-materialized due date of the next unpaid installment.
func (s *reconcileService) nextBillingDate(ctx context.Context, sub *dbm.Subscription, order *dbm.Order, view *providers.ScheduleView, completed int) *int64 {
	freq := order.InstallmentPlan.Frequency
	if !view.CurrentPeriodEnd.IsZero() {
		next := providers.PeriodAfter(view.CurrentPeriodEnd, freq).Unix()
		return &next
	}

	payments, err := s.payments.ListByOrder(ctx, sub.OrderID)
	if err != nil {
		log.Printf("reconcile: subscription %s: next billing fallback failed: %v", sub.ID, err)
		return nil
	}
	for _, p := range payments {
		if p.IsInitial || p.InstallmentNumber == nil || p.DueDate == nil {
			continue
		}
		if *p.InstallmentNumber == completed+1 {
			due := *p.DueDate
			return &due
		}
	}
	return nil
}

func (s *reconcileService) SyncBatch(ctx context.Context, limit int) (*response_models.ReconcileReport, error) {
	if limit <= 0 {
		limit = DefaultSyncLimit
	}
	if limit > MaxSyncLimit {
		limit = MaxSyncLimit
	}

	subs, err := s.subs.ListSyncable(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	report := &response_models.ReconcileReport{}
	for _, sub := range subs {
		report.Processed++
		if _, err := s.SyncSubscription(ctx, sub.ID.String()); err != nil {
			// One bad subscription never aborts the sweep.
			report.Failed++
			report.Errors = append(report.Errors, response_models.ReconcileItemError{
				SubscriptionID: sub.ID.String(),
				Error:          err.Error(),
			})
			log.Printf("reconcile: subscription %s failed: %v", sub.ID, err)
			continue
		}
		report.Successful++
	}
	return report, nil
}

func (s *reconcileService) RunSweep(ctx context.Context) (*response_models.ReconcileReport, error) {
	if s.locker == nil {
		return s.SyncBatch(ctx, DefaultSyncLimit)
	}

	mutex := s.locker.NewMutex(sweepLockName,
		redsync.WithExpiry(sweepLockExpiry),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: reconciliation sweep already running", utils.ErrInvalidState)
	}
	defer func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			log.Printf("reconcile: sweep lock release failed: %v", err)
		}
	}()

	return s.SyncBatch(ctx, DefaultSyncLimit)
}
