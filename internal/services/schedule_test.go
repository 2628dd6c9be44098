package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

func TestBuildInstallmentSchedule_MonthlyExactCount(t *testing.T) {
	plan := &dbm.InstallmentPlan{Frequency: dbm.FrequencyMonthly, NumInstallments: 5}
	activated := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	// $550 order with a $50 initial payment: $500 financed over 5 months.
	entries, err := services.BuildInstallmentSchedule(50000, plan, activated)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	var sum int64
	for i, e := range entries {
		assert.Equal(t, i+1, e.Number)
		assert.Equal(t, int64(10000), e.AmountMinor)
		assert.Equal(t, activated.AddDate(0, i, 0), e.DueDate)
		sum += e.AmountMinor
	}
	assert.Equal(t, int64(50000), sum)
}

func TestBuildInstallmentSchedule_WeeklyDueDates(t *testing.T) {
	plan := &dbm.InstallmentPlan{Frequency: dbm.FrequencyWeekly, NumInstallments: 4}
	activated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	entries, err := services.BuildInstallmentSchedule(20000, plan, activated)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i, e := range entries {
		assert.Equal(t, activated.AddDate(0, 0, 7*i), e.DueDate, "installment %d", i+1)
	}
}

func TestBuildInstallmentSchedule_RejectsUnevenSplit(t *testing.T) {
	plan := &dbm.InstallmentPlan{Frequency: dbm.FrequencyMonthly, NumInstallments: 3}

	_, err := services.BuildInstallmentSchedule(10000, plan, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestBuildInstallmentSchedule_RejectsInstantPlan(t *testing.T) {
	plan := &dbm.InstallmentPlan{Frequency: dbm.FrequencyInstant, NumInstallments: 0}

	_, err := services.BuildInstallmentSchedule(10000, plan, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestBuildInstallmentSchedule_RejectsNonPositiveAmount(t *testing.T) {
	plan := &dbm.InstallmentPlan{Frequency: dbm.FrequencyMonthly, NumInstallments: 5}

	_, err := services.BuildInstallmentSchedule(0, plan, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrValidation)
}
