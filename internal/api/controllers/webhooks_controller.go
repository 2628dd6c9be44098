package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payOSHQ/payos-lib-golang"

	"alignbill/internal/providers"
	"alignbill/internal/services"
)

// WebhooksController is the payOS notification edge. Webhooks are a
// best-effort signal; reconciliation remains the source of truth when
// delivery fails or races.
type WebhooksController struct {
	orderService     services.OrderService
	reconcileService services.ReconcileService
}

func NewWebhooksController(orderService services.OrderService, reconcileService services.ReconcileService) *WebhooksController {
	return &WebhooksController{
		orderService:     orderService,
		reconcileService: reconcileService,
	}
}

func (wc *WebhooksController) HandlePayOSWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	var body payos.WebhookType
	if err := json.Unmarshal(rawBody, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	data, payosErr := payos.VerifyPaymentWebhookData(body)
	if payosErr != nil {
		log.Printf("webhook: signature verification failed: %v", payosErr)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to verify webhook data"})
		return
	}

	// payOS sends a fixed test order code when confirming the webhook URL.
	if data.OrderCode == 123 {
		c.JSON(http.StatusOK, gin.H{"message": "Webhook confirmed"})
		return
	}

	// payOS only notifies on successful checkout.
	payment, err := wc.orderService.RecordProviderEvent(c.Request.Context(), providers.TxnID(data.OrderCode), true)
	if err != nil {
		log.Printf("webhook: failed to process order code %d: %v", data.OrderCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process transaction"})
		return
	}

	// An installment settling may complete the whole subscription;
	// resync eagerly instead of waiting for the next sweep.
	if payment != nil && !payment.IsInitial && payment.ProviderScheduleID != "" {
		go func(orderID string) {
			// detached from the request; the sweep will retry on failure
			if err := wc.syncByOrder(orderID); err != nil {
				log.Printf("webhook: post-event sync for order %s failed: %v", orderID, err)
			}
		}(payment.OrderID.String())
	}

	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}

func (wc *WebhooksController) syncByOrder(orderID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	progress, err := wc.orderService.GetSubscriptionProgress(ctx, orderID)
	if err != nil {
		return err
	}
	_, err = wc.reconcileService.SyncSubscription(ctx, progress.SubscriptionID)
	return err
}
