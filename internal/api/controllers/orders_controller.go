package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/models/request_models"
	"alignbill/internal/models/response_models"
	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

type OrdersController struct {
	orderService services.OrderService
}

func NewOrdersController(orderService services.OrderService) *OrdersController {
	return &OrdersController{orderService: orderService}
}

// CreateOrder godoc
// @Summary Create an order (idempotent) and attempt the initial charge
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body request_models.CreateOrderRequest true "Create Order Request"
// @Success 200 {object} utils.APIResponse
// @Router /orders [post]
func (oc *OrdersController) CreateOrder(c *gin.Context) {
	var req request_models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	in, err := toCreateOrderInput(req)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := oc.orderService.CreateOrder(c.Request.Context(), in)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewOrderResponse(order), "Order created")
}

func toCreateOrderInput(req request_models.CreateOrderRequest) (services.CreateOrderInput, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return services.CreateOrderInput{}, err
	}
	kitID, err := uuid.Parse(req.KitProductID)
	if err != nil {
		return services.CreateOrderInput{}, err
	}
	alignerID, err := uuid.Parse(req.AlignerProductID)
	if err != nil {
		return services.CreateOrderInput{}, err
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return services.CreateOrderInput{}, err
	}
	return services.CreateOrderInput{
		UserID:             userID,
		KitProductID:       kitID,
		AlignerProductID:   alignerID,
		PlanID:             planID,
		IdempotencyKey:     req.IdempotencyKey,
		PaymentMethodToken: req.PaymentMethodToken,
		Notes:              req.Notes,
	}, nil
}

func (oc *OrdersController) GetOrder(c *gin.Context) {
	order, err := oc.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewOrderResponse(order), "")
}

func (oc *OrdersController) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := oc.orderService.ListOrders(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	items := make([]response_models.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, response_models.NewOrderResponse(&orders[i]))
	}
	utils.RespondSuccess(c, gin.H{"orders": items, "total": total}, "")
}

func (oc *OrdersController) GetPaymentHistory(c *gin.Context) {
	payments, err := oc.orderService.GetPaymentHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewPaymentHistory(payments), "")
}

func (oc *OrdersController) GetSubscriptionProgress(c *gin.Context) {
	progress, err := oc.orderService.GetSubscriptionProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, progress, "")
}

// AdvanceStatus godoc
// @Summary Advance an order one lifecycle step
// @Tags Orders
// @Param id path string true "Order ID"
// @Param request body request_models.AdvanceStatusRequest true "Target status"
// @Security BearerAuth
// @Router /orders/{id}/status [patch]
func (oc *OrdersController) AdvanceStatus(c *gin.Context) {
	var req request_models.AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	order, err := oc.orderService.AdvanceStatus(c.Request.Context(), c.Param("id"), dbm.OrderStatus(req.Status))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewOrderResponse(order), "Order status updated")
}

func (oc *OrdersController) ActivateSubscription(c *gin.Context) {
	sub, err := oc.orderService.ActivateSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewSubscriptionProgress(sub), "Subscription activated")
}

func (oc *OrdersController) CancelOrder(c *gin.Context) {
	order, err := oc.orderService.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.NewOrderResponse(order), "Order cancelled")
}
