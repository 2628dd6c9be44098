package feedback_fx

import (
	"go.uber.org/fx"

	"alignbill/internal/api/controllers"
	"alignbill/internal/repositories"
	"alignbill/internal/services"
)

var Module = fx.Provide(
	repositories.NewFeedbackRepository,
	services.NewFeedbackService,
	controllers.NewFeedbackController,
)
