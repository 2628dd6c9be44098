package request_models

type CreateOrderRequest struct {
	UserID             string `json:"user_id" binding:"required,uuid"`
	KitProductID       string `json:"kit_product_id" binding:"required,uuid"`
	AlignerProductID   string `json:"aligner_product_id" binding:"required,uuid"`
	PlanID             string `json:"plan_id" binding:"required,uuid"`
	IdempotencyKey     string `json:"idempotency_key" binding:"required,max=128"`
	PaymentMethodToken string `json:"payment_method_token"`
	Notes              string `json:"notes"`
}

type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
