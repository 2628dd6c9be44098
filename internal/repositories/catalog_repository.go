package repositories

import (
	"context"
	"errors"
	"gorm.io/gorm"

	"alignbill/internal/models/db_models"
)

// Products and installment plans are reference data: the order engine
// only ever reads them.
type ICatalogRepository interface {
	GetProductByID(ctx context.Context, productID string) (*db_models.Product, error)
	GetPlanByID(ctx context.Context, planID string) (*db_models.InstallmentPlan, error)
	ListActiveProducts(ctx context.Context) ([]db_models.Product, error)
	ListActivePlans(ctx context.Context) ([]db_models.InstallmentPlan, error)
}

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) ICatalogRepository {
	return &CatalogRepository{db: db}
}

func (r CatalogRepository) GetProductByID(ctx context.Context, productID string) (*db_models.Product, error) {
	var product db_models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r CatalogRepository) GetPlanByID(ctx context.Context, planID string) (*db_models.InstallmentPlan, error) {
	var plan db_models.InstallmentPlan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", planID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r CatalogRepository) ListActiveProducts(ctx context.Context) ([]db_models.Product, error) {
	var products []db_models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r CatalogRepository) ListActivePlans(ctx context.Context) ([]db_models.InstallmentPlan, error) {
	var plans []db_models.InstallmentPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("num_installments ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}
