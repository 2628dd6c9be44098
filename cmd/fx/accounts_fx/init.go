package accounts_fx

import (
	"log"
	"os"
	"strconv"

	"go.uber.org/fx"

	"alignbill/internal/api/controllers"
	"alignbill/internal/repositories"
	"alignbill/internal/services"
	mem "alignbill/pkg/memcache"
)

var Module = fx.Provide(
	repositories.NewAccountRepository,
	provideResetTokenStore,
	provideMailService,
	services.NewAccountService,
	controllers.NewAccountsController,
)

func provideResetTokenStore() mem.ResetTokenStore {
	return mem.NewResetTokens()
}

// provideMailService returns nil when SMTP is not configured; the
// account service degrades to logging instead of sending.
func provideMailService() services.IMailService {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		log.Println("SMTP_HOST not set, password reset mails disabled")
		return nil
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}

	mailer, err := services.NewSMTPMailService(services.SMTPConfig{
		Host:       host,
		Port:       port,
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		From:       os.Getenv("SMTP_FROM"),
		FromName:   os.Getenv("SMTP_FROM_NAME"),
		UseSSL:     port == 465,
		AppName:    os.Getenv("APP_NAME"),
		AppBaseURL: os.Getenv("APP_BASE_URL"),
	})
	if err != nil {
		log.Fatalf("Error configuring mail service: %v", err)
	}
	return mailer
}
