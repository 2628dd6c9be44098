package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alignbill/internal/models/request_models"
	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

type FeedbackController struct {
	feedbackService services.FeedbackService
}

func NewFeedbackController(feedbackService services.FeedbackService) *FeedbackController {
	return &FeedbackController{feedbackService: feedbackService}
}

// AddFeedback godoc
// @Summary Rate a completed order
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body request_models.AddFeedbackRequest true "Feedback payload"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /feedback [post]
func (f *FeedbackController) AddFeedback(c *gin.Context) {
	var req request_models.AddFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid token subject")
		return
	}

	if err := f.feedbackService.AddFeedback(c.Request.Context(), userID, req.OrderID, req.Comment, req.Rating); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Feedback added successfully")
}

// ListFeedback godoc
// @Summary List feedback (admin)
// @Tags Feedback
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/feedback [get]
func (f *FeedbackController) ListFeedback(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	feedbacks, err := f.feedbackService.ListFeedback(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, feedbacks, "Feedback fetched successfully")
}
