package services

import (
	"context"
	"fmt"
	"time"

	dbm "alignbill/internal/models/db_models"
	resp "alignbill/internal/models/response_models"
	"alignbill/internal/repositories"
	"alignbill/pkg/utils"
)

type DashboardService interface {
	BuildDashboard(ctx context.Context, rng resp.TimeRange, currency string) (*resp.DashboardReport, error)
}

type dashboardService struct {
	repo repositories.IDashboardRepository
}

func NewDashboardService(repo repositories.IDashboardRepository) DashboardService {
	return &dashboardService{repo: repo}
}

func normalizeRange(r resp.TimeRange) resp.TimeRange {
	out := r
	if out.Interval == "" {
		out.Interval = "day"
	}
	if out.End.IsZero() {
		out.End = time.Now().UTC()
	}
	if out.Start.IsZero() {
		out.Start = out.End.AddDate(0, 0, -30)
	}
	if out.Start.After(out.End) {
		out.Start, out.End = out.End, out.Start
	}
	return out
}

func (s *dashboardService) BuildDashboard(ctx context.Context, rng resp.TimeRange, currency string) (*resp.DashboardReport, error) {
	rng = normalizeRange(rng)

	var kpis resp.KPIBlock
	var err error

	if kpis.TotalAccounts, err = s.repo.CountTotalAccounts(ctx); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.NewAccounts, err = s.repo.CountNewAccounts(ctx, rng.Start, rng.End); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.TotalOrders, err = s.repo.CountOrders(ctx); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.PendingOrders, err = s.repo.CountOrdersByStatus(ctx, dbm.OrderStatusPending); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.CompletedOrders, err = s.repo.CountOrdersByStatus(ctx, dbm.OrderStatusCompleted); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.CancelledOrders, err = s.repo.CountOrdersByStatus(ctx, dbm.OrderStatusCancelled); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.ActiveSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusActive); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.PastDueSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusPastDue); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.CancelledSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusCancelled); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.CompletedSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusCompleted); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.RevenueMinor, err = s.repo.RevenueMinor(ctx, rng.Start, rng.End); err != nil {
		return nil, s.wrap(err)
	}
	if kpis.OutstandingMinor, err = s.repo.OutstandingMinor(ctx); err != nil {
		return nil, s.wrap(err)
	}

	revenueRows, err := s.repo.RevenueSeries(ctx, rng.Start, rng.End, rng.Interval, rng.Timezone)
	if err != nil {
		return nil, s.wrap(err)
	}
	var revenuePoints []resp.SeriesPoint
	var totalRevenue int64
	for _, r := range revenueRows {
		revenuePoints = append(revenuePoints, resp.SeriesPoint{Bucket: r.Bucket, Value: r.Sum})
		totalRevenue += r.Sum
	}

	accountRows, err := s.repo.NewAccountsSeries(ctx, rng.Start, rng.End, rng.Interval, rng.Timezone)
	if err != nil {
		return nil, s.wrap(err)
	}
	var accountPoints []resp.SeriesPoint
	for _, r := range accountRows {
		accountPoints = append(accountPoints, resp.SeriesPoint{Bucket: r.Bucket, Value: r.Sum})
	}

	orderRows, err := s.repo.NewOrdersSeries(ctx, rng.Start, rng.End, rng.Interval, rng.Timezone)
	if err != nil {
		return nil, s.wrap(err)
	}
	var orderPoints []resp.SeriesPoint
	for _, r := range orderRows {
		orderPoints = append(orderPoints, resp.SeriesPoint{Bucket: r.Bucket, Value: r.Sum})
	}

	planRows, err := s.repo.PlanMix(ctx)
	if err != nil {
		return nil, s.wrap(err)
	}
	var totalPlanned float64
	for _, r := range planRows {
		totalPlanned += float64(r.Count)
	}
	planMix := make([]resp.PlanMixItem, 0, len(planRows))
	for _, r := range planRows {
		var pct float64
		if totalPlanned > 0 {
			pct = float64(r.Count) * 100.0 / totalPlanned
		}
		planMix = append(planMix, resp.PlanMixItem{
			PlanID:   r.PlanID,
			PlanCode: r.PlanCode,
			Count:    r.Count,
			Percent:  pct,
		})
	}

	payRows, err := s.repo.RecentPayments(ctx, 10)
	if err != nil {
		return nil, s.wrap(err)
	}
	recent := make([]resp.RecentPayment, 0, len(payRows))
	for _, r := range payRows {
		recent = append(recent, resp.RecentPayment{
			ID:            r.ID,
			PaidAt:        r.PaidAt,
			AmountMinor:   r.AmountMinor,
			Currency:      r.Currency,
			Status:        r.Status,
			ProviderTxnID: r.ProviderTxnID,
			AccountEmail:  r.AccountEmail,
		})
	}

	return &resp.DashboardReport{
		Range: rng,
		KPIs:  kpis,
		Revenue: resp.RevenueSeries{
			Currency:   currency,
			Points:     revenuePoints,
			TotalMinor: totalRevenue,
		},
		NewAccounts:    resp.CountSeries{Points: accountPoints},
		NewOrders:      resp.CountSeries{Points: orderPoints},
		PlanMix:        planMix,
		RecentPayments: recent,
	}, nil
}

func (s *dashboardService) wrap(err error) error {
	return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
}
