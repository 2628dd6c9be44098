package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/providers"
	"alignbill/pkg/utils"
)

// activeSubscription provisions a financed monthly order all the way to
// subscription_active and returns its subscription.
func activeSubscription(t *testing.T, env *testEnv, key string) *dbm.Subscription {
	t.Helper()
	ctx := context.Background()

	order := env.financedToAlignerReady(t, env.createInput(env.monthlyPlan, key))
	sub, err := env.orderSvc.ActivateSubscription(ctx, order.ID.String())
	require.NoError(t, err)
	return sub
}

func TestSyncSubscription_CompletionPropagatesToOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := activeSubscription(t, env, "key-sync-complete")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: providers.ScheduleActive, CompletedCount: 5}, nil
	}

	healed, err := env.reconcileSvc.SyncSubscription(ctx, sub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.SubStatusCompleted, healed.Status)
	assert.Equal(t, 5, healed.CompletedInstallments)

	order, err := env.orderSvc.GetOrder(ctx, sub.OrderID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusCompleted, order.Status)

	// Every installment row was settled from the provider count.
	payments, err := env.payments.ListByOrder(ctx, sub.OrderID)
	require.NoError(t, err)
	for _, p := range payments[1:] {
		assert.Equal(t, dbm.PaymentStatusSucceeded, p.Status)
		assert.NotNil(t, p.PaidAt)
	}
}

func TestSyncSubscription_PartialProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := activeSubscription(t, env, "key-sync-partial")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: providers.ScheduleActive, CompletedCount: 2}, nil
	}

	healed, err := env.reconcileSvc.SyncSubscription(ctx, sub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.SubStatusActive, healed.Status)
	assert.Equal(t, 2, healed.CompletedInstallments)

	// Next billing falls back to the due date of installment 3.
	payments, err := env.payments.ListByOrder(ctx, sub.OrderID)
	require.NoError(t, err)
	var due3 *int64
	for _, p := range payments {
		if p.InstallmentNumber != nil && *p.InstallmentNumber == 3 {
			due3 = p.DueDate
		}
	}
	require.NotNil(t, due3)

	stored, err := env.subs.GetByOrderID(ctx, sub.OrderID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextBillingDate)
	assert.Equal(t, *due3, *stored.NextBillingDate)

	order, err := env.orderSvc.GetOrder(ctx, sub.OrderID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.OrderStatusSubscriptionActive, order.Status)
}

func TestSyncSubscription_PastDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := activeSubscription(t, env, "key-sync-pastdue")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: providers.SchedulePastDue, CompletedCount: 1}, nil
	}

	healed, err := env.reconcileSvc.SyncSubscription(ctx, sub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.SubStatusPastDue, healed.Status)

	// Installment 1 settled, installment 2 flagged past due.
	payments, err := env.payments.ListByOrder(ctx, sub.OrderID)
	require.NoError(t, err)
	statuses := map[int]dbm.PaymentStatus{}
	for _, p := range payments {
		if p.InstallmentNumber != nil {
			statuses[*p.InstallmentNumber] = p.Status
		}
	}
	assert.Equal(t, dbm.PaymentStatusSucceeded, statuses[1])
	assert.Equal(t, dbm.PaymentStatusPastDue, statuses[2])
	assert.Equal(t, dbm.PaymentStatusPending, statuses[3])
}

func TestSyncSubscription_UnrecognizedStatusLeavesStateAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := activeSubscription(t, env, "key-sync-unknown")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: "paused_by_carrier_pigeon", CompletedCount: 1}, nil
	}

	healed, err := env.reconcileSvc.SyncSubscription(ctx, sub.ID.String())
	require.NoError(t, err)
	// Count heals, status does not move on a status we cannot map.
	assert.Equal(t, dbm.SubStatusActive, healed.Status)
	assert.Equal(t, 1, healed.CompletedInstallments)
}

func TestSyncSubscription_IrreconcilableCountLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := activeSubscription(t, env, "key-sync-consistency")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: providers.ScheduleActive, CompletedCount: 9}, nil
	}

	_, err := env.reconcileSvc.SyncSubscription(ctx, sub.ID.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConsistency)

	stored, err := env.subs.GetByOrderID(ctx, sub.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CompletedInstallments)
	assert.Equal(t, dbm.SubStatusActive, stored.Status)
}

func TestSyncSubscription_CancelledAtProvider(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := activeSubscription(t, env, "key-sync-cancelled")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: providers.ScheduleCanceled, CompletedCount: 2}, nil
	}

	healed, err := env.reconcileSvc.SyncSubscription(ctx, sub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, dbm.SubStatusCancelled, healed.Status)

	stored, err := env.subs.GetByOrderID(ctx, sub.OrderID)
	require.NoError(t, err)
	assert.Nil(t, stored.NextBillingDate)
}

func TestSyncBatch_IsolatesPerItemFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	good := activeSubscription(t, env, "key-batch-good")
	bad := activeSubscription(t, env, "key-batch-bad")

	env.provider.statusFn = func(scheduleID string) (*providers.ScheduleView, error) {
		if scheduleID == bad.ProviderScheduleID {
			return nil, errors.New("provider 500")
		}
		return &providers.ScheduleView{Status: providers.ScheduleActive, CompletedCount: 1}, nil
	}

	report, err := env.reconcileSvc.SyncBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, bad.ID.String(), report.Errors[0].SubscriptionID)

	// The good one still healed.
	stored, err := env.subs.GetByOrderID(ctx, good.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CompletedInstallments)
}

func TestRunSweep_WithoutLockerFallsBackToBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	activeSubscription(t, env, "key-sweep")

	env.provider.statusFn = func(string) (*providers.ScheduleView, error) {
		return &providers.ScheduleView{Status: providers.ScheduleActive, CompletedCount: 0}, nil
	}

	report, err := env.reconcileSvc.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Successful)
}

func TestSyncSubscription_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reconcileSvc.SyncSubscription(context.Background(), "7b4f2d3e-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, utils.ErrRecordNotFound)
}
