package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"alignbill/cmd/fx/accounts_fx"
	"alignbill/cmd/fx/catalog_fx"
	"alignbill/cmd/fx/dashboard_fx"
	"alignbill/cmd/fx/db_fx"
	"alignbill/cmd/fx/feedback_fx"
	"alignbill/cmd/fx/orders_fx"
	"alignbill/cmd/fx/provider_fx"
	"alignbill/cmd/fx/reconcile_fx"
	"alignbill/cmd/fx/redis_fx"
	"alignbill/internal/api/controllers"
	"alignbill/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	app := fx.New(
		db_fx.Module,
		redis_fx.Module,
		provider_fx.Module,
		accounts_fx.Module,
		catalog_fx.Module,
		dashboard_fx.Module,
		feedback_fx.Module,
		orders_fx.Module,
		reconcile_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				log.Printf("Starting HTTP server at :%s", port)
				if err := engine.Run(":" + port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	accountsController *controllers.AccountsController,
	ordersController *controllers.OrdersController,
	catalogController *controllers.CatalogController,
	dashboardController *controllers.DashboardController,
	feedbackController *controllers.FeedbackController,
	reconcileController *controllers.ReconcileController,
	webhooksController *controllers.WebhooksController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, accountsController, ordersController, catalogController,
		dashboardController, feedbackController, reconcileController, webhooksController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountsController *controllers.AccountsController,
	ordersController *controllers.OrdersController,
	catalogController *controllers.CatalogController,
	dashboardController *controllers.DashboardController,
	feedbackController *controllers.FeedbackController,
	reconcileController *controllers.ReconcileController,
	webhooksController *controllers.WebhooksController) {

	accountsGroup := r.Group("/accounts")
	accountsGroup.POST("/register", accountsController.Register)
	accountsGroup.POST("/login", accountsController.Login)
	accountsGroup.POST("/forgot-password", accountsController.ForgotPassword)
	accountsGroup.POST("/reset-password", accountsController.ResetPassword)
	accountsGroup.GET("/me", middleware.JWTAuthMiddleware(), accountsController.Me)

	catalogGroup := r.Group("/catalog")
	catalogGroup.GET("/products", catalogController.ListProducts)
	catalogGroup.GET("/plans", catalogController.ListPlans)

	ordersGroup := r.Group("/orders")
	ordersGroup.Use(middleware.JWTAuthMiddleware())
	ordersGroup.POST("", ordersController.CreateOrder)
	ordersGroup.GET("/:id", ordersController.GetOrder)
	ordersGroup.GET("/:id/payments", ordersController.GetPaymentHistory)
	ordersGroup.GET("/:id/subscription", ordersController.GetSubscriptionProgress)

	feedbackGroup := r.Group("/feedback")
	feedbackGroup.Use(middleware.JWTAuthMiddleware())
	feedbackGroup.POST("", feedbackController.AddFeedback)

	// Operational transitions are operator-only; all mutation still
	// funnels through the order state machine.
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	adminGroup.GET("/accounts", accountsController.ListAccounts)
	adminGroup.GET("/dashboard", dashboardController.GetDashboard)
	adminGroup.GET("/feedback", feedbackController.ListFeedback)
	adminGroup.GET("/orders", ordersController.ListOrders)
	adminGroup.PATCH("/orders/:id/status", ordersController.AdvanceStatus)
	adminGroup.POST("/orders/:id/subscription", ordersController.ActivateSubscription)
	adminGroup.POST("/orders/:id/cancel", ordersController.CancelOrder)
	adminGroup.POST("/reconcile/subscriptions/:id", reconcileController.SyncSubscription)
	adminGroup.POST("/reconcile/sweep", reconcileController.RunSweep)

	webhooksGroup := r.Group("/webhooks")
	webhooksGroup.POST("/payos", webhooksController.HandlePayOSWebhook)
}
