package services

import (
	"fmt"
	"time"

	dbm "alignbill/internal/models/db_models"
	"alignbill/pkg/utils"
)

type InstallmentEntry struct {
	Number      int
	AmountMinor int64
	DueDate     time.Time
}

// BuildInstallmentSchedule splits the financed balance across the
// plan's installments. The financed amount must divide evenly: the
// provider schedule runs a single fixed amount per iteration, so an
// uneven split would drift from what actually gets charged. Order
// creation validates the same rule before any money moves.
//
// Installment i (1-based) falls due at activation plus i-1 periods;
// a period is 7 days for weekly plans and one calendar month for
// monthly plans. The result always has exactly NumInstallments
// entries.
func BuildInstallmentSchedule(financedMinor int64, plan *dbm.InstallmentPlan, activatedAt time.Time) ([]InstallmentEntry, error) {
	if plan == nil || plan.IsInstant() {
		return nil, fmt.Errorf("%w: instant plans have no installment schedule", utils.ErrInvalidState)
	}
	n := plan.NumInstallments
	if financedMinor <= 0 {
		return nil, fmt.Errorf("%w: financed amount must be positive, got %d", utils.ErrValidation, financedMinor)
	}
	if financedMinor%int64(n) != 0 {
		return nil, fmt.Errorf("%w: financed amount %d does not divide evenly into %d installments", utils.ErrValidation, financedMinor, n)
	}

	per := financedMinor / int64(n)
	entries := make([]InstallmentEntry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, InstallmentEntry{
			Number:      i,
			AmountMinor: per,
			DueDate:     installmentDueDate(activatedAt, plan.Frequency, i),
		})
	}
	return entries, nil
}

func installmentDueDate(activatedAt time.Time, frequency dbm.PlanFrequency, number int) time.Time {
	if frequency == dbm.FrequencyWeekly {
		return activatedAt.AddDate(0, 0, 7*(number-1))
	}
	return activatedAt.AddDate(0, number-1, 0)
}
