package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusKitPaid            OrderStatus = "kit_paid"   // financed path: kit charged, balance scheduled
	OrderStatusFullPaid           OrderStatus = "full_paid"  // instant path: everything charged up front
	OrderStatusKitReceived        OrderStatus = "kit_received"
	OrderStatusAlignerReady       OrderStatus = "aligner_ready"
	OrderStatusSubscriptionActive OrderStatus = "subscription_active"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// PlanKind is derived once at creation so later transitions never have
// to compare money columns to decide which path an order is on.
type PlanKind string

const (
	PlanKindInstant  PlanKind = "instant"
	PlanKindFinanced PlanKind = "financed"
)

type Order struct {
	BaseModel
	UserID            uuid.UUID `gorm:"index"`
	KitProductID      uuid.UUID `gorm:"index"`
	AlignerProductID  uuid.UUID `gorm:"index"`
	InstallmentPlanID uuid.UUID `gorm:"index"`

	PlanKind PlanKind    `gorm:"index"`
	Status   OrderStatus `gorm:"index"`

	// Minor units. InitialPaymentMinor == TotalMinor on the instant path.
	TotalMinor          int64
	InitialPaymentMinor int64
	Currency            string `gorm:"size:3"`

	// Client-supplied key; the unique index is what actually prevents
	// duplicate orders under concurrent retries.
	IdempotencyKey string `gorm:"uniqueIndex;size:128"`

	PaymentMethodToken    string
	Notes                 string
	SubscriptionStartDate *int64 // unix seconds, set when the subscription activates

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	KitProduct      Product         `gorm:"foreignKey:KitProductID"`
	AlignerProduct  Product         `gorm:"foreignKey:AlignerProductID"`
	InstallmentPlan InstallmentPlan `gorm:"foreignKey:InstallmentPlanID"`
}

// FinancedMinor is the balance that gets split across installments.
func (o *Order) FinancedMinor() int64 {
	return o.TotalMinor - o.InitialPaymentMinor
}
