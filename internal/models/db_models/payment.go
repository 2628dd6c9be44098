package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusPastDue   PaymentStatus = "past_due"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	BaseModel
	OrderID uuid.UUID `gorm:"index;uniqueIndex:idx_payments_order_installment"`

	AmountMinor int64
	Currency    string `gorm:"size:3"`

	// Exactly one payment per order carries IsInitial. Installment rows
	// get a 1-based InstallmentNumber, unique within the order.
	IsInitial         bool
	InstallmentNumber *int   `gorm:"uniqueIndex:idx_payments_order_installment"`
	DueDate           *int64 // unix seconds; nil for the initial charge

	Status PaymentStatus `gorm:"index"`

	ProviderTxnID      string `gorm:"index"`
	ProviderScheduleID string `gorm:"index"`

	PaidAt *int64 // set iff Status == succeeded

	// Raw provider payloads, failure reasons, etc.
	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Order Order `gorm:"foreignKey:OrderID"`
}

func (Payment) TableName() string { return "payments" }
