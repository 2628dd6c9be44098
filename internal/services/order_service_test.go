package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/providers"
	"alignbill/pkg/utils"
)

func TestCreateOrder_InstantPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.instantPlan, "key-instant-1"))
	require.NoError(t, err)

	// Pay-in-full gets the discounted aligner price.
	assert.Equal(t, int64(50000), order.TotalMinor)
	assert.Equal(t, int64(50000), order.InitialPaymentMinor)
	assert.Equal(t, dbm.PlanKindInstant, order.PlanKind)
	assert.Equal(t, dbm.OrderStatusFullPaid, order.Status)

	payments, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].IsInitial)
	assert.Equal(t, dbm.PaymentStatusSucceeded, payments[0].Status)
	require.NotNil(t, payments[0].PaidAt)
}

func TestCreateOrder_FinancedPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "key-financed-1"))
	require.NoError(t, err)

	assert.Equal(t, int64(55000), order.TotalMinor)
	assert.Equal(t, int64(5000), order.InitialPaymentMinor)
	assert.Equal(t, dbm.PlanKindFinanced, order.PlanKind)
	assert.Equal(t, dbm.OrderStatusKitPaid, order.Status)
}

func TestCreateOrder_IdempotentSameKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := env.createInput(env.monthlyPlan, "order_u1_p2_171234")

	first, err := env.orderSvc.CreateOrder(ctx, in)
	require.NoError(t, err)
	second, err := env.orderSvc.CreateOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, env.provider.chargeCalls, "retried checkout must not double-charge")

	payments, err := env.payments.ListByOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestCreateOrder_DuplicateKeyReturnsWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Different triples, same idempotency key: the pending-order scan
	// misses, the unique index decides, the loser gets the winner's row.
	first, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "shared-key"))
	require.NoError(t, err)

	second, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.weeklyPlan, "shared-key"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, env.db.Model(&dbm.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := env.createInput(env.monthlyPlan, "")
	_, err := env.orderSvc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, utils.ErrValidation)

	in = env.createInput(env.monthlyPlan, "key-bad-plan")
	in.PlanID = in.UserID // no such plan
	_, err = env.orderSvc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, utils.ErrValidation)

	inactive := dbm.InstallmentPlan{Code: "retired", Frequency: dbm.FrequencyMonthly, NumInstallments: 5, IsActive: false}
	require.NoError(t, env.db.Create(&inactive).Error)
	in = env.createInput(inactive, "key-inactive-plan")
	_, err = env.orderSvc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestCreateOrder_ProviderCallFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.provider.chargeFn = func(int64) (*providers.ChargeResult, error) {
		return nil, errors.New("gateway timeout")
	}

	in := env.createInput(env.monthlyPlan, "key-provider-down")
	_, err := env.orderSvc.CreateOrder(ctx, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrProvider)

	// The order and a failed payment row survive for audit.
	order, rerr := env.orders.GetByIdempotencyKey(ctx, "key-provider-down")
	require.NoError(t, rerr)
	require.NotNil(t, order)
	assert.Equal(t, dbm.OrderStatusPending, order.Status)

	initial, rerr := env.payments.GetInitialByOrder(ctx, order.ID)
	require.NoError(t, rerr)
	require.NotNil(t, initial)
	assert.Equal(t, dbm.PaymentStatusFailed, initial.Status)
}

func TestCreateOrder_RetryAfterFailedCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.provider.chargeFn = func(int64) (*providers.ChargeResult, error) {
		return &providers.ChargeResult{ProviderTxnID: "txn-declined", Status: providers.ChargeFailed}, nil
	}

	in := env.createInput(env.monthlyPlan, "key-retry")
	order, err := env.orderSvc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusPending, order.Status)

	// Card works on the second attempt.
	env.provider.chargeFn = nil
	order, err = env.orderSvc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusKitPaid, order.Status)
	assert.Equal(t, 2, env.provider.chargeCalls)

	// Still exactly one initial payment row.
	payments, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, dbm.PaymentStatusSucceeded, payments[0].Status)
}

func TestRecordInitialPayment_NoOpWhenNotPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "key-noop"))
	require.NoError(t, err)
	require.Equal(t, dbm.OrderStatusKitPaid, order.Status)

	// A replayed webhook must change nothing.
	replayed, err := env.orderSvc.RecordInitialPayment(ctx, order.ID.String(), providers.ChargeResult{
		ProviderTxnID: "txn-replay",
		Status:        providers.ChargeSucceeded,
	})
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusKitPaid, replayed.Status)

	payments, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestAdvanceStatus_TransitionGraph(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "key-graph"))
	require.NoError(t, err)

	// Skipping kit_received is rejected.
	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusAlignerReady)
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	// Moving backward is rejected.
	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusPending)
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	// subscription_active cannot be entered through the generic op.
	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusSubscriptionActive)
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusKitReceived)
	require.NoError(t, err)
	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusAlignerReady)
	require.NoError(t, err)
}

func TestAdvanceStatus_TerminalStatesAreFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "key-terminal"))
	require.NoError(t, err)

	for _, terminal := range []dbm.OrderStatus{dbm.OrderStatusCompleted, dbm.OrderStatusCancelled} {
		require.NoError(t, env.db.Model(&dbm.Order{}).
			Where("id = ?", order.ID).
			Update("status", terminal).Error)

		_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusKitReceived)
		assert.ErrorIs(t, err, utils.ErrInvalidState, "from %s", terminal)
	}
}

func TestActivateSubscription_MonthlySchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.financedToAlignerReady(t, env.createInput(env.monthlyPlan, "key-activate"))
	before := time.Now()

	sub, err := env.orderSvc.ActivateSubscription(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.SubStatusActive, sub.Status)
	assert.Equal(t, 5, sub.TotalInstallments)
	assert.Equal(t, 0, sub.CompletedInstallments)
	assert.Equal(t, int64(10000), sub.InstallmentMinor)
	require.NotNil(t, sub.NextBillingDate)

	got, err := env.orderSvc.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusSubscriptionActive, got.Status)
	require.NotNil(t, got.SubscriptionStartDate)

	// Exactly 5 installment rows of $100, numbered 1..5, one month apart.
	payments, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 6) // initial + 5

	seen := map[int]bool{}
	activation := time.Unix(*got.SubscriptionStartDate, 0)
	for _, p := range payments[1:] {
		require.NotNil(t, p.InstallmentNumber)
		n := *p.InstallmentNumber
		assert.False(t, seen[n], "duplicate installment number %d", n)
		seen[n] = true
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 5)
		assert.Equal(t, int64(10000), p.AmountMinor)
		assert.Equal(t, dbm.PaymentStatusPending, p.Status)
		require.NotNil(t, p.DueDate)
		assert.Equal(t, activation.AddDate(0, n-1, 0).Unix(), *p.DueDate)
	}
	assert.Len(t, seen, 5)
	assert.WithinDuration(t, before, activation, 5*time.Second)
}

func TestActivateSubscription_InvalidStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Wrong status.
	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "key-act-early"))
	require.NoError(t, err)
	_, err = env.orderSvc.ActivateSubscription(ctx, order.ID.String())
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	// Activating twice.
	ready := env.financedToAlignerReady(t, env.createInput(env.monthlyPlan, "key-act-twice"))
	_, err = env.orderSvc.ActivateSubscription(ctx, ready.ID.String())
	require.NoError(t, err)
	_, err = env.orderSvc.ActivateSubscription(ctx, ready.ID.String())
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestInstantOrder_NeverGetsSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.instantPlan, "key-instant-sub"))
	require.NoError(t, err)

	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusKitReceived)
	require.NoError(t, err)
	_, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusAlignerReady)
	require.NoError(t, err)

	_, err = env.orderSvc.ActivateSubscription(ctx, order.ID.String())
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	// The instant branch finishes without ever visiting subscription_active.
	got, err := env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusCompleted, got.Status)

	sub, err := env.subs.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestCancelOrder_ProviderCancelFailureStillCommits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.financedToAlignerReady(t, env.createInput(env.monthlyPlan, "key-cancel"))
	sub, err := env.orderSvc.ActivateSubscription(ctx, order.ID.String())
	require.NoError(t, err)

	env.provider.cancelFn = func(string) (bool, error) {
		return false, errors.New("provider exploded")
	}

	got, err := env.orderSvc.CancelOrder(ctx, order.ID.String())
	require.NoError(t, err, "local cancellation must commit even when the provider call fails")
	assert.Equal(t, dbm.OrderStatusCancelled, got.Status)
	assert.Contains(t, env.provider.cancelCalls, sub.ProviderScheduleID)

	// All pending installments were cancelled locally.
	payments, err := env.payments.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	for _, p := range payments {
		if p.IsInitial {
			continue
		}
		assert.Equal(t, dbm.PaymentStatusCancelled, p.Status)
	}

	healed, err := env.subs.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, healed)
	assert.Equal(t, dbm.SubStatusCancelled, healed.Status)
}

func TestCancelOrder_TerminalOrderRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.monthlyPlan, "key-cancel-terminal"))
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&dbm.Order{}).
		Where("id = ?", order.ID).
		Update("status", dbm.OrderStatusCompleted).Error)

	_, err = env.orderSvc.CancelOrder(ctx, order.ID.String())
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestGetPaymentHistory_OrderedInitialFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.financedToAlignerReady(t, env.createInput(env.monthlyPlan, "key-history"))
	_, err := env.orderSvc.ActivateSubscription(ctx, order.ID.String())
	require.NoError(t, err)

	payments, err := env.orderSvc.GetPaymentHistory(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, payments, 6)
	assert.True(t, payments[0].IsInitial)
	for i, p := range payments[1:] {
		require.NotNil(t, p.InstallmentNumber)
		assert.Equal(t, i+1, *p.InstallmentNumber)
	}
}
