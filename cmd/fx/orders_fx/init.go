package orders_fx

import (
	"go.uber.org/fx"

	"alignbill/internal/api/controllers"
	"alignbill/internal/repositories"
	"alignbill/internal/services"
)

var Module = fx.Provide(
	repositories.NewOrderRepository,
	repositories.NewPaymentRepository,
	repositories.NewSubscriptionRepository,
	services.NewOrderCreator,
	services.NewOrderService,
	controllers.NewOrdersController,
)
