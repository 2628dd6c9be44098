package response_models

import (
	dbm "alignbill/internal/models/db_models"
)

type OrderResponse struct {
	ID                    string  `json:"id"`
	UserID                string  `json:"user_id"`
	Status                string  `json:"status"`
	PlanKind              string  `json:"plan_kind"`
	TotalMinor            int64   `json:"total_minor"`
	InitialPaymentMinor   int64   `json:"initial_payment_minor"`
	Currency              string  `json:"currency"`
	Notes                 string  `json:"notes,omitempty"`
	SubscriptionStartDate *int64  `json:"subscription_start_date,omitempty"`
	CreatedAt             int64   `json:"created_at"`
}

func NewOrderResponse(o *dbm.Order) OrderResponse {
	return OrderResponse{
		ID:                    o.ID.String(),
		UserID:                o.UserID.String(),
		Status:                string(o.Status),
		PlanKind:              string(o.PlanKind),
		TotalMinor:            o.TotalMinor,
		InitialPaymentMinor:   o.InitialPaymentMinor,
		Currency:              o.Currency,
		Notes:                 o.Notes,
		SubscriptionStartDate: o.SubscriptionStartDate,
		CreatedAt:             o.CreatedAt,
	}
}

type PaymentEntry struct {
	ID                string `json:"id"`
	AmountMinor       int64  `json:"amount_minor"`
	Currency          string `json:"currency"`
	IsInitial         bool   `json:"is_initial"`
	InstallmentNumber *int   `json:"installment_number,omitempty"`
	DueDate           *int64 `json:"due_date,omitempty"`
	Status            string `json:"status"`
	ProviderTxnID     string `json:"provider_txn_id,omitempty"`
	PaidAt            *int64 `json:"paid_at,omitempty"`
}

func NewPaymentHistory(payments []dbm.Payment) []PaymentEntry {
	entries := make([]PaymentEntry, 0, len(payments))
	for _, p := range payments {
		entries = append(entries, PaymentEntry{
			ID:                p.ID.String(),
			AmountMinor:       p.AmountMinor,
			Currency:          p.Currency,
			IsInitial:         p.IsInitial,
			InstallmentNumber: p.InstallmentNumber,
			DueDate:           p.DueDate,
			Status:            string(p.Status),
			ProviderTxnID:     p.ProviderTxnID,
			PaidAt:            p.PaidAt,
		})
	}
	return entries
}
