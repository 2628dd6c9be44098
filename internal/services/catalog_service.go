package services

import (
	"context"
	"fmt"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/repositories"
	"alignbill/pkg/utils"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]dbm.Product, error)
	ListPlans(ctx context.Context) ([]dbm.InstallmentPlan, error)
}

func NewCatalogService(catalog repositories.ICatalogRepository) CatalogService {
	return &catalogService{catalog: catalog}
}

type catalogService struct {
	catalog repositories.ICatalogRepository
}

func (s *catalogService) ListProducts(ctx context.Context) ([]dbm.Product, error) {
	products, err := s.catalog.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return products, nil
}

func (s *catalogService) ListPlans(ctx context.Context) ([]dbm.InstallmentPlan, error) {
	plans, err := s.catalog.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return plans, nil
}
