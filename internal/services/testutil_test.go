package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/providers"
	"alignbill/internal/repositories"
	"alignbill/internal/services"
)

// newTestDB opens an in-memory sqlite database. A single connection is
// forced so every query sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&dbm.Account{},
		&dbm.Product{},
		&dbm.InstallmentPlan{},
		&dbm.Order{},
		&dbm.Payment{},
		&dbm.Subscription{},
		&dbm.Feedback{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeProvider fakes the payment provider with overridable behaviors,
// defaulting to a provider where everything succeeds synchronously.
type fakeProvider struct {
	chargeCalls   int
	scheduleCalls int
	cancelCalls   []string

	chargeFn   func(amountMinor int64) (*providers.ChargeResult, error)
	scheduleFn func(installmentMinor int64, count int) (*providers.ScheduleResult, error)
	cancelFn   func(scheduleID string) (bool, error)
	statusFn   func(scheduleID string) (*providers.ScheduleView, error)
}

func (f *fakeProvider) ChargeInitial(ctx context.Context, customerRef, paymentMethodRef string, amountMinor int64, metadata map[string]string) (*providers.ChargeResult, error) {
	f.chargeCalls++
	if f.chargeFn != nil {
		return f.chargeFn(amountMinor)
	}
	return &providers.ChargeResult{
		ProviderTxnID: fmt.Sprintf("fake-txn-%d", f.chargeCalls),
		Status:        providers.ChargeSucceeded,
	}, nil
}

func (f *fakeProvider) CreateRecurringSchedule(ctx context.Context, customerRef, paymentMethodRef string, installmentMinor int64, count int, frequency dbm.PlanFrequency, metadata map[string]string) (*providers.ScheduleResult, error) {
	f.scheduleCalls++
	if f.scheduleFn != nil {
		return f.scheduleFn(installmentMinor, count)
	}
	return &providers.ScheduleResult{
		ProviderScheduleID: fmt.Sprintf("fake-sched-%d", f.scheduleCalls),
		ProviderSubID:      fmt.Sprintf("fake-sub-%d", f.scheduleCalls),
		FirstBillingDate:   providers.PeriodAfter(time.Now(), frequency),
	}, nil
}

func (f *fakeProvider) CancelSchedule(ctx context.Context, providerScheduleID string) (bool, error) {
	f.cancelCalls = append(f.cancelCalls, providerScheduleID)
	if f.cancelFn != nil {
		return f.cancelFn(providerScheduleID)
	}
	return true, nil
}

func (f *fakeProvider) GetScheduleStatus(ctx context.Context, providerScheduleID string) (*providers.ScheduleView, error) {
	if f.statusFn != nil {
		return f.statusFn(providerScheduleID)
	}
	return &providers.ScheduleView{Status: providers.ScheduleActive}, nil
}

type testEnv struct {
	db       *gorm.DB
	orders   repositories.IOrderRepository
	payments repositories.IPaymentRepository
	subs     repositories.ISubscriptionRepository
	provider *fakeProvider

	orderSvc     services.OrderService
	reconcileSvc services.ReconcileService

	kit     dbm.Product
	aligner dbm.Product

	instantPlan dbm.InstallmentPlan
	monthlyPlan dbm.InstallmentPlan // 5 installments
	weeklyPlan  dbm.InstallmentPlan // 10 installments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	env := &testEnv{
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		payments: repositories.NewPaymentRepository(db),
		subs:     repositories.NewSubscriptionRepository(db),
		provider: &fakeProvider{},
	}

	catalog := repositories.NewCatalogRepository(db)
	creator := services.NewOrderCreator(env.orders, catalog)
	env.orderSvc = services.NewOrderService(env.orders, env.payments, env.subs, creator, env.provider)
	env.reconcileSvc = services.NewReconcileService(env.subs, env.payments, env.orders, env.orderSvc, env.provider, nil)

	// $50 kit; $500 aligner, $450 when paid in full.
	env.kit = dbm.Product{Code: "kit", Name: "Impression Kit", Kind: dbm.ProductKindKit, PriceMinor: 5000, Currency: "USD", IsActive: true}
	env.aligner = dbm.Product{Code: "aligner", Name: "Aligner Set", Kind: dbm.ProductKindAligner, PriceMinor: 50000, DiscountedPriceMinor: 45000, Currency: "USD", IsActive: true}
	for _, p := range []*dbm.Product{&env.kit, &env.aligner} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	env.instantPlan = dbm.InstallmentPlan{Code: "instant", Description: "Pay in full", Frequency: dbm.FrequencyInstant, NumInstallments: 0, IsActive: true}
	env.monthlyPlan = dbm.InstallmentPlan{Code: "monthly_5", Description: "5 monthly payments", Frequency: dbm.FrequencyMonthly, NumInstallments: 5, IsActive: true}
	env.weeklyPlan = dbm.InstallmentPlan{Code: "weekly_10", Description: "10 weekly payments", Frequency: dbm.FrequencyWeekly, NumInstallments: 10, IsActive: true}
	for _, p := range []*dbm.InstallmentPlan{&env.instantPlan, &env.monthlyPlan, &env.weeklyPlan} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed plan: %v", err)
		}
	}

	return env
}

// createInput gets a fresh user every call so triples never collide
// across tests unless a test reuses the same input.
func (env *testEnv) createInput(plan dbm.InstallmentPlan, key string) services.CreateOrderInput {
	return services.CreateOrderInput{
		UserID:             uuid.New(),
		KitProductID:       env.kit.ID,
		AlignerProductID:   env.aligner.ID,
		PlanID:             plan.ID,
		IdempotencyKey:     key,
		PaymentMethodToken: "pm_test",
	}
}

// financedToAlignerReady walks a financed order up to aligner_ready.
func (env *testEnv) financedToAlignerReady(t *testing.T, in services.CreateOrderInput) *dbm.Order {
	t.Helper()
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, in)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != dbm.OrderStatusKitPaid {
		t.Fatalf("expected kit_paid after creation, got %s", order.Status)
	}
	if _, err := env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusKitReceived); err != nil {
		t.Fatalf("advance to kit_received: %v", err)
	}
	if _, err := env.orderSvc.AdvanceStatus(ctx, order.ID.String(), dbm.OrderStatusAlignerReady); err != nil {
		t.Fatalf("advance to aligner_ready: %v", err)
	}
	return order
}
