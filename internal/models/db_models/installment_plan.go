package db_models

type PlanFrequency string

const (
	FrequencyInstant PlanFrequency = "instant" // single payment, no schedule
	FrequencyWeekly  PlanFrequency = "weekly"
	FrequencyMonthly PlanFrequency = "monthly"
)

type InstallmentPlan struct {
	BaseModel
	Code        string `gorm:"uniqueIndex"` // e.g., "instant", "monthly_5", "weekly_12"
	Description string
	Frequency   PlanFrequency `gorm:"index"`
	// 0 for instant plans; otherwise the exact number of charges
	// the provider schedule must run.
	NumInstallments int
	IsActive        bool `gorm:"default:true"`
}

func (p *InstallmentPlan) IsInstant() bool {
	return p.Frequency == FrequencyInstant || p.NumInstallments == 0
}
