package controllers

import (
	"github.com/gin-gonic/gin"

	"alignbill/internal/models/response_models"
	"alignbill/internal/services"
	"alignbill/pkg/utils"
)

type CatalogController struct {
	catalogService services.CatalogService
}

func NewCatalogController(catalogService services.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

func (cc *CatalogController) ListProducts(c *gin.Context) {
	products, err := cc.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	items := make([]response_models.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, response_models.NewProductResponse(&products[i]))
	}
	utils.RespondSuccess(c, items, "")
}

func (cc *CatalogController) ListPlans(c *gin.Context) {
	plans, err := cc.catalogService.ListPlans(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	items := make([]response_models.PlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, response_models.NewPlanResponse(&plans[i]))
	}
	utils.RespondSuccess(c, items, "")
}
