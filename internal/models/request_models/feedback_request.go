package request_models

type AddFeedbackRequest struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
	Comment string `json:"comment" binding:"max=2000"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
}
