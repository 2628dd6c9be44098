package controllers

import (
	"github.com/gin-gonic/gin"

	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

type ReconcileController struct {
	reconcileService services.ReconcileService
}

func NewReconcileController(reconcileService services.ReconcileService) *ReconcileController {
	return &ReconcileController{reconcileService: reconcileService}
}

// SyncSubscription godoc
// @Summary Resync one subscription from the payment provider
// @Tags Reconciliation
// @Param id path string true "Subscription ID"
// @Security BearerAuth
// @Router /reconcile/subscriptions/{id} [post]
func (rc *ReconcileController) SyncSubscription(c *gin.Context) {
	sub, err := rc.reconcileService.SyncSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{
		"subscription_id":        sub.ID.String(),
		"status":                 sub.Status,
		"completed_installments": sub.CompletedInstallments,
		"total_installments":     sub.TotalInstallments,
	}, "Subscription synced")
}

// RunSweep godoc
// @Summary Run a bounded reconciliation sweep over syncable subscriptions
// @Tags Reconciliation
// @Security BearerAuth
// @Router /reconcile/sweep [post]
func (rc *ReconcileController) RunSweep(c *gin.Context) {
	report, err := rc.reconcileService.RunSweep(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, report, "Sweep finished")
}
