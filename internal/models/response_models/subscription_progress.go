package response_models

import (
	dbm "alignbill/internal/models/db_models"
)

type SubscriptionProgress struct {
	SubscriptionID        string `json:"subscription_id"`
	OrderID               string `json:"order_id"`
	CompletedInstallments int    `json:"completed_installments"`
	TotalInstallments     int    `json:"total_installments"`
	InstallmentMinor      int64  `json:"installment_minor"`
	Currency              string `json:"currency"`
	NextBillingDate       *int64 `json:"next_billing_date,omitempty"`
	Status                string `json:"status"`
}

func NewSubscriptionProgress(sub *dbm.Subscription) *SubscriptionProgress {
	return &SubscriptionProgress{
		SubscriptionID:        sub.ID.String(),
		OrderID:               sub.OrderID.String(),
		CompletedInstallments: sub.CompletedInstallments,
		TotalInstallments:     sub.TotalInstallments,
		InstallmentMinor:      sub.InstallmentMinor,
		Currency:              sub.Currency,
		NextBillingDate:       sub.NextBillingDate,
		Status:                string(sub.Status),
	}
}
