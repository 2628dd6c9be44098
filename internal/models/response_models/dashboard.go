package response_models

import "time"

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// "day" | "week" | "month"
	Interval string `json:"interval"`
	// Timezone used for bucketing; UTC if empty
	Timezone string `json:"timezone,omitempty"`
}

type KPIBlock struct {
	TotalAccounts int64 `json:"total_accounts"`
	NewAccounts   int64 `json:"new_accounts"`

	TotalOrders     int64 `json:"total_orders"`
	PendingOrders   int64 `json:"pending_orders"`
	CompletedOrders int64 `json:"completed_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`

	ActiveSubscriptions    int64 `json:"active_subscriptions"`
	PastDueSubscriptions   int64 `json:"past_due_subscriptions"`
	CancelledSubscriptions int64 `json:"cancelled_subscriptions"`
	CompletedSubscriptions int64 `json:"completed_subscriptions"`

	// Collected over the range vs. installments still unpaid overall.
	RevenueMinor     int64 `json:"revenue_minor"`
	OutstandingMinor int64 `json:"outstanding_minor"`
}

type SeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Value  int64     `json:"value"`
}

type RevenueSeries struct {
	Currency   string        `json:"currency"`
	Points     []SeriesPoint `json:"points"`
	TotalMinor int64         `json:"total_minor"`
}

type CountSeries struct {
	Points []SeriesPoint `json:"points"`
}

type PlanMixItem struct {
	PlanID   string  `json:"plan_id"`
	PlanCode string  `json:"plan_code"`
	Count    int64   `json:"count"`
	Percent  float64 `json:"percent"`
}

type RecentPayment struct {
	ID            string `json:"id"`
	PaidAt        int64  `json:"paid_at"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	ProviderTxnID string `json:"provider_txn_id"`
	AccountEmail  string `json:"account_email"`
}

type DashboardReport struct {
	Range          TimeRange       `json:"range"`
	KPIs           KPIBlock        `json:"kpis"`
	Revenue        RevenueSeries   `json:"revenue"`
	NewAccounts    CountSeries     `json:"new_accounts"`
	NewOrders      CountSeries     `json:"new_orders"`
	PlanMix        []PlanMixItem   `json:"plan_mix"`
	RecentPayments []RecentPayment `json:"recent_payments"`
}
