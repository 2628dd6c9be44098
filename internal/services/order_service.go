package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/models/response_models"
	"alignbill/internal/providers"
	"alignbill/internal/repositories"
	"alignbill/pkg/utils"
)

type OrderService interface {
	// CreateOrder runs the idempotent creation protocol and, for a
	// freshly created order, attempts the initial charge.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*dbm.Order, error)

	// RecordInitialPayment applies a provider charge outcome to the
	// order. Duplicate calls for an order no longer pending are a
	// no-op so retried webhooks stay harmless.
	RecordInitialPayment(ctx context.Context, orderID string, result providers.ChargeResult) (*dbm.Order, error)

	// ActivateSubscription is only legal from aligner_ready on a
	// financed order: it materializes the full installment schedule
	// and moves the order to subscription_active.
	ActivateSubscription(ctx context.Context, orderID string) (*dbm.Subscription, error)

	// AdvanceStatus performs a single forward step of the lifecycle;
	// skipping states or moving backward is rejected, except into
	// cancelled.
	AdvanceStatus(ctx context.Context, orderID string, next dbm.OrderStatus) (*dbm.Order, error)

	// CancelOrder always commits locally; a failing provider-side
	// cancel is logged and left to reconciliation.
	CancelOrder(ctx context.Context, orderID string) (*dbm.Order, error)

	// RecordProviderEvent routes a provider notification to the right
	// payment row. Unknown transaction ids return (nil, nil) so the
	// webhook edge can ack and avoid a retry storm.
	RecordProviderEvent(ctx context.Context, providerTxnID string, succeeded bool) (*dbm.Payment, error)

	GetOrder(ctx context.Context, orderID string) (*dbm.Order, error)
	ListOrders(ctx context.Context, page, pageSize int) ([]dbm.Order, int64, error)
	GetPaymentHistory(ctx context.Context, orderID string) ([]dbm.Payment, error)
	GetSubscriptionProgress(ctx context.Context, orderID string) (*response_models.SubscriptionProgress, error)
}

type orderService struct {
	orders   repositories.IOrderRepository
	payments repositories.IPaymentRepository
	subs     repositories.ISubscriptionRepository
	creator  *OrderCreator
	provider providers.PaymentProvider

	providerTimeout time.Duration
}

func NewOrderService(
	orders repositories.IOrderRepository,
	payments repositories.IPaymentRepository,
	subs repositories.ISubscriptionRepository,
	creator *OrderCreator,
	provider providers.PaymentProvider,
) OrderService {
	return &orderService{
		orders:          orders,
		payments:        payments,
		subs:            subs,
		creator:         creator,
		provider:        provider,
		providerTimeout: 15 * time.Second,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*dbm.Order, error) {
	order, _, err := s.creator.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if order.Status != dbm.OrderStatusPending {
		return order, nil
	}

	// Charge only when no attempt is in flight or settled; a failed
	// attempt may be retried.
	initial, err := s.payments.GetInitialByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if initial != nil && initial.Status != dbm.PaymentStatusFailed {
		return order, nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	res, err := s.provider.ChargeInitial(cctx, order.UserID.String(), order.PaymentMethodToken, order.InitialPaymentMinor, map[string]string{
		"order_id":    order.ID.String(),
		"description": "Aligner order initial payment",
	})
	if err != nil {
		// The attempt is recorded even when the provider call never
		// resolved, so the ledger keeps an audit trail.
		if uerr := s.upsertInitialPayment(ctx, order, dbm.PaymentStatusFailed, ""); uerr != nil {
			log.Printf("order %s: failed to record failed charge: %v", order.ID, uerr)
		}
		return order, fmt.Errorf("%w: initial charge: %v", utils.ErrProvider, err)
	}

	return s.RecordInitialPayment(ctx, order.ID.String(), *res)
}

func (s *orderService) RecordInitialPayment(ctx context.Context, orderID string, result providers.ChargeResult) (*dbm.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != dbm.OrderStatusPending {
		return order, nil
	}

	switch result.Status {
	case providers.ChargeSucceeded:
		next := dbm.OrderStatusKitPaid
		if order.PlanKind == dbm.PlanKindInstant {
			next = dbm.OrderStatusFullPaid
		}
		won, err := s.orders.UpdateStatusIf(ctx, order.ID, dbm.OrderStatusPending, map[string]interface{}{
			"status": next,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if !won {
			// A concurrent call already applied the transition.
			return s.getOrder(ctx, orderID)
		}
		if err := s.upsertInitialPayment(ctx, order, dbm.PaymentStatusSucceeded, result.ProviderTxnID); err != nil {
			return nil, err
		}
		order.Status = next
		return order, nil

	case providers.ChargePending:
		if err := s.upsertInitialPayment(ctx, order, dbm.PaymentStatusPending, result.ProviderTxnID); err != nil {
			return nil, err
		}
		return order, nil

	default:
		if err := s.upsertInitialPayment(ctx, order, dbm.PaymentStatusFailed, result.ProviderTxnID); err != nil {
			return nil, err
		}
		return order, nil
	}
}

// upsertInitialPayment keeps the one-initial-payment-per-order
// invariant: the row is created on the first attempt and rewritten on
// retries.
func (s *orderService) upsertInitialPayment(ctx context.Context, order *dbm.Order, status dbm.PaymentStatus, providerTxnID string) error {
	existing, err := s.payments.GetInitialByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	var paidAt *int64
	if status == dbm.PaymentStatusSucceeded {
		now := time.Now().Unix()
		paidAt = &now
	}

	if existing == nil {
		payment := &dbm.Payment{
			OrderID:       order.ID,
			AmountMinor:   order.InitialPaymentMinor,
			Currency:      order.Currency,
			IsInitial:     true,
			Status:        status,
			ProviderTxnID: providerTxnID,
			PaidAt:        paidAt,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		return nil
	}

	updates := map[string]interface{}{"status": status}
	if providerTxnID != "" {
		updates["provider_txn_id"] = providerTxnID
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	if err := s.payments.Update(ctx, existing.ID, updates); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (s *orderService) ActivateSubscription(ctx context.Context, orderID string) (*dbm.Subscription, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PlanKind != dbm.PlanKindFinanced {
		return nil, fmt.Errorf("%w: order %s is not financed", utils.ErrInvalidState, orderID)
	}
	if order.Status != dbm.OrderStatusAlignerReady {
		return nil, fmt.Errorf("%w: cannot activate subscription from %s", utils.ErrInvalidState, order.Status)
	}
	if existing, err := s.subs.GetByOrderID(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: subscription already exists for order %s", utils.ErrInvalidState, orderID)
	}

	plan := order.InstallmentPlan
	activatedAt := time.Now()

	entries, err := BuildInstallmentSchedule(order.FinancedMinor(), &plan, activatedAt)
	if err != nil {
		return nil, err
	}
	per := entries[0].AmountMinor

	cctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	scheduleRes, err := s.provider.CreateRecurringSchedule(cctx, order.UserID.String(), order.PaymentMethodToken, per, plan.NumInstallments, plan.Frequency, map[string]string{
		"order_id": order.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create schedule: %v", utils.ErrProvider, err)
	}

	firstBilling := scheduleRes.FirstBillingDate.Unix()
	sub := &dbm.Subscription{
		OrderID:            order.ID,
		ProviderSubID:      scheduleRes.ProviderSubID,
		ProviderScheduleID: scheduleRes.ProviderScheduleID,
		TotalInstallments:  plan.NumInstallments,
		InstallmentMinor:   per,
		Currency:           order.Currency,
		NextBillingDate:    &firstBilling,
		Status:             dbm.SubStatusActive,
	}

	payments := make([]*dbm.Payment, 0, len(entries))
	for _, e := range entries {
		num := e.Number
		due := e.DueDate.Unix()
		payments = append(payments, &dbm.Payment{
			OrderID:            order.ID,
			AmountMinor:        e.AmountMinor,
			Currency:           order.Currency,
			InstallmentNumber:  &num,
			DueDate:            &due,
			Status:             dbm.PaymentStatusPending,
			ProviderScheduleID: scheduleRes.ProviderScheduleID,
		})
	}

	activated, err := s.subs.ActivateWithSchedule(ctx, order.ID, activatedAt.Unix(), sub, payments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if !activated {
		// Someone moved the order while the provider call was in
		// flight; abort the schedule we just created.
		if _, cerr := s.provider.CancelSchedule(ctx, scheduleRes.ProviderScheduleID); cerr != nil {
			log.Printf("order %s: stale schedule %s not cancelled: %v", order.ID, scheduleRes.ProviderScheduleID, cerr)
		}
		return nil, fmt.Errorf("%w: order %s left aligner_ready during activation", utils.ErrInvalidState, orderID)
	}
	return sub, nil
}

func (s *orderService) AdvanceStatus(ctx context.Context, orderID string, next dbm.OrderStatus) (*dbm.Order, error) {
	if next == dbm.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if next == dbm.OrderStatusSubscriptionActive {
		return nil, fmt.Errorf("%w: subscription activation has its own operation", utils.ErrInvalidState)
	}
	if !transitionAllowed(order, next) {
		return nil, fmt.Errorf("%w: cannot advance %s order from %s to %s", utils.ErrInvalidState, order.PlanKind, order.Status, next)
	}

	won, err := s.orders.UpdateStatusIf(ctx, order.ID, order.Status, map[string]interface{}{"status": next})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if !won {
		return nil, fmt.Errorf("%w: order %s changed concurrently", utils.ErrInvalidState, orderID)
	}
	order.Status = next
	return order, nil
}

// transitionAllowed encodes the lifecycle graph. Which branch applies
// was fixed at creation time via PlanKind.
func transitionAllowed(order *dbm.Order, next dbm.OrderStatus) bool {
	financed := order.PlanKind == dbm.PlanKindFinanced
	switch order.Status {
	case dbm.OrderStatusPending:
		if financed {
			return next == dbm.OrderStatusKitPaid
		}
		return next == dbm.OrderStatusFullPaid
	case dbm.OrderStatusKitPaid, dbm.OrderStatusFullPaid:
		return next == dbm.OrderStatusKitReceived
	case dbm.OrderStatusKitReceived:
		return next == dbm.OrderStatusAlignerReady
	case dbm.OrderStatusAlignerReady:
		if financed {
			return next == dbm.OrderStatusSubscriptionActive
		}
		return next == dbm.OrderStatusCompleted
	case dbm.OrderStatusSubscriptionActive:
		return next == dbm.OrderStatusCompleted
	default:
		return false
	}
}

func (s *orderService) CancelOrder(ctx context.Context, orderID string) (*dbm.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is already %s", utils.ErrInvalidState, orderID, order.Status)
	}

	sub, err := s.subs.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	cancelled, err := s.orders.CancelCascade(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if !cancelled {
		return nil, fmt.Errorf("%w: order %s reached a terminal status concurrently", utils.ErrInvalidState, orderID)
	}
	order.Status = dbm.OrderStatusCancelled

	// Local state is authoritative for the user; a failed provider
	// cancel leaves drift that reconciliation cleans up later.
	if sub != nil && sub.ProviderScheduleID != "" {
		cctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		defer cancel()
		if _, err := s.provider.CancelSchedule(cctx, sub.ProviderScheduleID); err != nil {
			log.Printf("order %s: provider schedule %s cancel failed: %v", order.ID, sub.ProviderScheduleID, err)
		}
	}
	return order, nil
}

func (s *orderService) RecordProviderEvent(ctx context.Context, providerTxnID string, succeeded bool) (*dbm.Payment, error) {
	payment, err := s.payments.GetByProviderTxnID(ctx, providerTxnID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if payment == nil {
		log.Printf("provider event: no payment for txn %s", providerTxnID)
		return nil, nil
	}

	status := providers.ChargeFailed
	if succeeded {
		status = providers.ChargeSucceeded
	}

	if payment.IsInitial {
		if _, err := s.RecordInitialPayment(ctx, payment.OrderID.String(), providers.ChargeResult{
			ProviderTxnID: providerTxnID,
			Status:        status,
		}); err != nil {
			return nil, err
		}
		return payment, nil
	}

	// Installment event: settle the row; the reconciler owns the
	// subscription counters.
	if succeeded && payment.Status != dbm.PaymentStatusSucceeded {
		now := time.Now().Unix()
		if err := s.payments.UpdateStatus(ctx, payment.ID, dbm.PaymentStatusSucceeded, &now); err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
	}
	return payment, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*dbm.Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, page, pageSize int) ([]dbm.Order, int64, error) {
	if page < 1 {
		return nil, 0, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, 0, utils.ErrInvalidPageSize
	}
	orders, total, err := s.orders.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return orders, total, nil
}

func (s *orderService) GetPaymentHistory(ctx context.Context, orderID string) ([]dbm.Payment, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return payments, nil
}

func (s *orderService) GetSubscriptionProgress(ctx context.Context, orderID string) (*response_models.SubscriptionProgress, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: order %s has no subscription", utils.ErrRecordNotFound, orderID)
	}
	return response_models.NewSubscriptionProgress(sub), nil
}

func (s *orderService) getOrder(ctx context.Context, orderID string) (*dbm.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("%w: malformed order id %q", utils.ErrValidation, orderID)
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", utils.ErrRecordNotFound, orderID)
	}
	return order, nil
}
