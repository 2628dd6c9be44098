package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusPastDue   SubscriptionStatus = "past_due"
	SubStatusCancelled SubscriptionStatus = "cancelled"
	SubStatusCompleted SubscriptionStatus = "completed"
)

// Subscription tracks a financed order's installment progress. Instant
// orders never get one.
type Subscription struct {
	BaseModel
	OrderID uuid.UUID `gorm:"uniqueIndex"`

	ProviderSubID      string `gorm:"index"`
	ProviderScheduleID string `gorm:"index"`

	TotalInstallments     int
	CompletedInstallments int
	InstallmentMinor      int64 // per-installment amount; the last row may differ by the remainder
	Currency              string `gorm:"size:3"`

	NextBillingDate *int64 // unix seconds; nil unless status is active

	Status SubscriptionStatus `gorm:"index"`

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Order Order `gorm:"foreignKey:OrderID"`
}
