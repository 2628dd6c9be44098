package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/repositories"
	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

// completedInstantOrder walks an instant order to completed and
// returns it with its owner.
func completedInstantOrder(t *testing.T, env *testEnv) *dbm.Order {
	t.Helper()
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.instantPlan, "key-feedback"))
	require.NoError(t, err)
	require.Equal(t, dbm.OrderStatusFullPaid, order.Status)

	for _, next := range []dbm.OrderStatus{dbm.OrderStatusKitReceived, dbm.OrderStatusAlignerReady, dbm.OrderStatusCompleted} {
		order, err = env.orderSvc.AdvanceStatus(ctx, order.ID.String(), next)
		require.NoError(t, err)
	}
	return order
}

func newFeedbackService(env *testEnv) services.FeedbackService {
	return services.NewFeedbackService(repositories.NewFeedbackRepository(env.db), env.orders)
}

func TestFeedback_OnCompletedOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := newFeedbackService(env)
	ctx := context.Background()

	order := completedInstantOrder(t, env)
	require.NoError(t, svc.AddFeedback(ctx, order.UserID, order.ID.String(), "great fit", 5))

	feedbacks, err := svc.ListFeedback(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, feedbacks, 1)
	assert.Equal(t, order.ID, feedbacks[0].OrderID)
	assert.Equal(t, 5, feedbacks[0].Rating)
}

func TestFeedback_RejectedBeforeCompletion(t *testing.T) {
	env := newTestEnv(t)
	svc := newFeedbackService(env)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, env.createInput(env.instantPlan, "key-feedback-early"))
	require.NoError(t, err)

	err = svc.AddFeedback(ctx, order.UserID, order.ID.String(), "too soon", 3)
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestFeedback_WrongOwnerRejected(t *testing.T) {
	env := newTestEnv(t)
	svc := newFeedbackService(env)

	order := completedInstantOrder(t, env)
	err := svc.AddFeedback(context.Background(), uuid.New(), order.ID.String(), "not mine", 4)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestFeedback_OncePerOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := newFeedbackService(env)
	ctx := context.Background()

	order := completedInstantOrder(t, env)
	require.NoError(t, svc.AddFeedback(ctx, order.UserID, order.ID.String(), "first", 4))

	err := svc.AddFeedback(ctx, order.UserID, order.ID.String(), "second", 2)
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestFeedback_RatingBounds(t *testing.T) {
	env := newTestEnv(t)
	svc := newFeedbackService(env)
	ctx := context.Background()

	order := completedInstantOrder(t, env)
	assert.ErrorIs(t, svc.AddFeedback(ctx, order.UserID, order.ID.String(), "", 0), utils.ErrValidation)
	assert.ErrorIs(t, svc.AddFeedback(ctx, order.UserID, order.ID.String(), "", 6), utils.ErrValidation)
}
