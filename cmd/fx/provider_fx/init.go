package provider_fx

import (
	"go.uber.org/fx"
	"log"
	"os"

	"alignbill/internal/providers"
)

var Module = fx.Provide(providePaymentProvider)

func providePaymentProvider() providers.PaymentProvider {
	cfg := providers.PayOSConfig{
		ClientID:     os.Getenv("PAYOS_CLIENT_ID"),
		ApiKey:       os.Getenv("PAYOS_API_KEY"),
		ChecksumKey:  os.Getenv("PAYOS_CHECKSUM_KEY"),
		ReturnURL:    os.Getenv("PAYOS_RETURN_URL"),
		CancelURL:    os.Getenv("PAYOS_CANCEL_URL"),
		ProviderName: "payos",
	}

	provider, err := providers.NewPayOSProvider(cfg)
	if err != nil {
		log.Fatalf("Error initializing payment provider: %v", err)
	}
	return provider
}
