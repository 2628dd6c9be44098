package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"alignbill/internal/models/response_models"
	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

type DashboardController struct {
	dashboardService services.DashboardService
}

func NewDashboardController(dashboardService services.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// GetDashboard godoc
// @Summary Billing dashboard report
// @Description KPI block, revenue/new accounts/new orders series, plan mix, recent payments
// @Tags Dashboard
// @Produce json
// @Param start     query string false "RFC3339 start"
// @Param end       query string false "RFC3339 end"
// @Param last_days query int    false "Relative lookback in days (mutually exclusive with start/end)"
// @Param interval  query string false "Bucket size: day | week | month (default: day)"
// @Param tz        query string false "IANA timezone for bucketing"
// @Param currency  query string false "ISO 4217 currency code for labeling (default: USD)"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/dashboard [get]
func (d *DashboardController) GetDashboard(c *gin.Context) {
	interval := c.DefaultQuery("interval", "day")
	tz := c.Query("tz")
	currency := c.DefaultQuery("currency", "USD")

	if !validInterval(interval) {
		utils.RespondError(c, http.StatusBadRequest, "interval must be one of: day, week, month")
		return
	}

	var start, end time.Time
	var err error

	startStr := c.Query("start")
	endStr := c.Query("end")
	lastDaysStr := c.Query("last_days")

	if lastDaysStr != "" && (startStr != "" || endStr != "") {
		utils.RespondError(c, http.StatusBadRequest, "provide either last_days or start/end (not both)")
		return
	}

	if lastDaysStr != "" {
		days, convErr := strconv.Atoi(lastDaysStr)
		if convErr != nil || days <= 0 {
			utils.RespondError(c, http.StatusBadRequest, "last_days must be a positive integer")
			return
		}
		end = time.Now().UTC()
		start = end.AddDate(0, 0, -days)
	} else {
		if startStr != "" {
			if start, err = time.Parse(time.RFC3339, startStr); err != nil {
				utils.RespondError(c, http.StatusBadRequest, "start must be RFC3339")
				return
			}
		}
		if endStr != "" {
			if end, err = time.Parse(time.RFC3339, endStr); err != nil {
				utils.RespondError(c, http.StatusBadRequest, "end must be RFC3339")
				return
			}
		}
	}

	report, err := d.dashboardService.BuildDashboard(c.Request.Context(), response_models.TimeRange{
		Start:    start,
		End:      end,
		Interval: interval,
		Timezone: tz,
	}, currency)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, report, "Dashboard data fetched successfully")
}

func validInterval(s string) bool {
	switch s {
	case "day", "week", "month":
		return true
	default:
		return false
	}
}
