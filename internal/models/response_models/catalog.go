package response_models

import (
	dbm "alignbill/internal/models/db_models"
)

type ProductResponse struct {
	ID                   string  `json:"id"`
	Code                 string  `json:"code"`
	Name                 string  `json:"name"`
	Description          *string `json:"description,omitempty"`
	Kind                 string  `json:"kind"`
	PriceMinor           int64   `json:"price_minor"`
	DiscountedPriceMinor int64   `json:"discounted_price_minor,omitempty"`
	Currency             string  `json:"currency"`
}

func NewProductResponse(p *dbm.Product) ProductResponse {
	return ProductResponse{
		ID:                   p.ID.String(),
		Code:                 p.Code,
		Name:                 p.Name,
		Description:          p.Description,
		Kind:                 string(p.Kind),
		PriceMinor:           p.PriceMinor,
		DiscountedPriceMinor: p.DiscountedPriceMinor,
		Currency:             p.Currency,
	}
}

type PlanResponse struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Description     string `json:"description"`
	Frequency       string `json:"frequency"`
	NumInstallments int    `json:"num_installments"`
}

func NewPlanResponse(p *dbm.InstallmentPlan) PlanResponse {
	return PlanResponse{
		ID:              p.ID.String(),
		Code:            p.Code,
		Description:     p.Description,
		Frequency:       string(p.Frequency),
		NumInstallments: p.NumInstallments,
	}
}
