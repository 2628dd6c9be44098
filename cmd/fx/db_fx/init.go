package db_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"log"

	"alignbill/internal/infra"
	"alignbill/internal/models/db_models"
)

var Module = fx.Provide(provideDatabase)

func provideDatabase() *gorm.DB {
	db := infra.InitPostgresql()

	if err := db.AutoMigrate(
		&db_models.Account{},
		&db_models.Product{},
		&db_models.InstallmentPlan{},
		&db_models.Order{},
		&db_models.Payment{},
		&db_models.Subscription{},
		&db_models.Feedback{},
	); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	return db
}
