package reconcile_fx

import (
	"context"
	"log"
	"os"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"alignbill/internal/api/controllers"
	"alignbill/internal/services"
)

var Module = fx.Options(
	fx.Provide(
		services.NewReconcileService,
		controllers.NewReconcileController,
		controllers.NewWebhooksController,
	),
	fx.Invoke(startSweepCron),
)

// startSweepCron schedules the periodic reconciliation sweep. The
// operator endpoint can still trigger one at any time; the redsync
// lock keeps overlapping runs from racing.
func startSweepCron(lc fx.Lifecycle, reconcileService services.ReconcileService) {
	spec := os.Getenv("RECONCILE_CRON")
	if spec == "" {
		spec = "0 0 3 * * *" // daily at 03:00
	}

	scheduler := cron.New(cron.WithSeconds())
	_, err := scheduler.AddFunc(spec, func() {
		log.Println("[CRON] Starting reconciliation sweep...")
		report, err := reconcileService.RunSweep(context.Background())
		if err != nil {
			log.Printf("[CRON] Reconciliation sweep skipped: %v", err)
			return
		}
		log.Printf("[CRON] Reconciliation sweep finished: processed=%d successful=%d failed=%d",
			report.Processed, report.Successful, report.Failed)
	})
	if err != nil {
		log.Fatalf("Error scheduling reconciliation sweep: %v", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-scheduler.Stop().Done()
			return nil
		},
	})
}
