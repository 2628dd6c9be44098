package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "alignbill/internal/models/db_models"
	"alignbill/internal/repositories"
	"alignbill/pkg/utils"
)

type CreateOrderInput struct {
	UserID             uuid.UUID
	KitProductID       uuid.UUID
	AlignerProductID   uuid.UUID
	PlanID             uuid.UUID
	IdempotencyKey     string
	PaymentMethodToken string
	Notes              string
}

// OrderCreator guards order creation against client retry storms.
// A pending order with the same user/product/plan triple is treated as
// the request already satisfied; otherwise the unique index on the
// idempotency key decides the race and the loser returns the winner's
// row instead of erroring.
type OrderCreator struct {
	orders  repositories.IOrderRepository
	catalog repositories.ICatalogRepository
}

func NewOrderCreator(orders repositories.IOrderRepository, catalog repositories.ICatalogRepository) *OrderCreator {
	return &OrderCreator{orders: orders, catalog: catalog}
}

// Create returns the order plus whether this call actually inserted it.
// Callers only attempt the initial charge when created is true.
func (c *OrderCreator) Create(ctx context.Context, in CreateOrderInput) (order *dbm.Order, created bool, err error) {
	if in.IdempotencyKey == "" {
		return nil, false, fmt.Errorf("%w: idempotency key is required", utils.ErrValidation)
	}
	if in.UserID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: user id is required", utils.ErrValidation)
	}

	kit, aligner, plan, err := c.resolveReferences(ctx, in)
	if err != nil {
		return nil, false, err
	}

	// Fast path: a still-pending order for the same triple means the
	// client re-submitted checkout.
	existing, err := c.orders.FindPendingByTriple(ctx, in.UserID, in.KitProductID, in.AlignerProductID, in.PlanID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	order, err = c.buildOrder(in, kit, aligner, plan)
	if err != nil {
		return nil, false, err
	}

	if err := c.orders.Create(ctx, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent call with the same key won the insert;
			// return its order.
			winner, rerr := c.orders.GetByIdempotencyKey(ctx, in.IdempotencyKey)
			if rerr != nil {
				return nil, false, fmt.Errorf("%w: %v", utils.ErrDatabaseError, rerr)
			}
			if winner == nil {
				return nil, false, fmt.Errorf("%w: order vanished after duplicate key", utils.ErrDatabaseError)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return order, true, nil
}

func (c *OrderCreator) resolveReferences(ctx context.Context, in CreateOrderInput) (*dbm.Product, *dbm.Product, *dbm.InstallmentPlan, error) {
	kit, err := c.catalog.GetProductByID(ctx, in.KitProductID.String())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if kit == nil || !kit.IsActive || kit.Kind != dbm.ProductKindKit {
		return nil, nil, nil, fmt.Errorf("%w: kit product %s not found or inactive", utils.ErrValidation, in.KitProductID)
	}

	aligner, err := c.catalog.GetProductByID(ctx, in.AlignerProductID.String())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if aligner == nil || !aligner.IsActive || aligner.Kind != dbm.ProductKindAligner {
		return nil, nil, nil, fmt.Errorf("%w: aligner product %s not found or inactive", utils.ErrValidation, in.AlignerProductID)
	}

	plan, err := c.catalog.GetPlanByID(ctx, in.PlanID.String())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if plan == nil || !plan.IsActive {
		return nil, nil, nil, fmt.Errorf("%w: installment plan %s not found or inactive", utils.ErrValidation, in.PlanID)
	}
	return kit, aligner, plan, nil
}

func (c *OrderCreator) buildOrder(in CreateOrderInput, kit, aligner *dbm.Product, plan *dbm.InstallmentPlan) (*dbm.Order, error) {
	var total, initial int64
	var kind dbm.PlanKind

	if plan.IsInstant() {
		// Pay-in-full orders get the discounted aligner price and
		// never acquire a subscription.
		alignerPrice := aligner.PriceMinor
		if aligner.DiscountedPriceMinor > 0 {
			alignerPrice = aligner.DiscountedPriceMinor
		}
		total = kit.PriceMinor + alignerPrice
		initial = total
		kind = dbm.PlanKindInstant
	} else {
		total = kit.PriceMinor + aligner.PriceMinor
		initial = kit.PriceMinor
		kind = dbm.PlanKindFinanced

		financed := total - initial
		if financed <= 0 {
			return nil, fmt.Errorf("%w: financed plan with nothing to finance", utils.ErrValidation)
		}
		if financed%int64(plan.NumInstallments) != 0 {
			return nil, fmt.Errorf("%w: financed amount %d does not divide evenly into %d installments",
				utils.ErrValidation, financed, plan.NumInstallments)
		}
	}

	return &dbm.Order{
		UserID:              in.UserID,
		KitProductID:        in.KitProductID,
		AlignerProductID:    in.AlignerProductID,
		InstallmentPlanID:   in.PlanID,
		PlanKind:            kind,
		Status:              dbm.OrderStatusPending,
		TotalMinor:          total,
		InitialPaymentMinor: initial,
		Currency:            kit.Currency,
		IdempotencyKey:      in.IdempotencyKey,
		PaymentMethodToken:  in.PaymentMethodToken,
		Notes:               in.Notes,
	}, nil
}
