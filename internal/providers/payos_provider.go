package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/payOSHQ/payos-lib-golang"

	"alignbill/internal/models/db_models"
)

type PayOSConfig struct {
	ClientID     string
	ApiKey       string
	ChecksumKey  string
	ReturnURL    string
	CancelURL    string
	ProviderName string // stored on payment rows as the txn id prefix
}

// payOSProvider adapts the payOS checkout-link API to the engine's
// provider contract. payOS has no native recurring billing, so a
// "schedule" is materialized as count pre-created payment links with
// sequential order codes; the schedule id encodes the base code and
// count ("payos:<base>:<count>"), which keeps the adapter stateless.
type payOSProvider struct {
	cfg PayOSConfig
}

func NewPayOSProvider(cfg PayOSConfig) (PaymentProvider, error) {
	if cfg.ClientID == "" || cfg.ApiKey == "" || cfg.ChecksumKey == "" {
		return nil, errors.New("missing payOS credentials")
	}
	if err := payos.Key(cfg.ClientID, cfg.ApiKey, cfg.ChecksumKey); err != nil {
		return nil, fmt.Errorf("payos client init: %w", err)
	}
	return &payOSProvider{cfg: cfg}, nil
}

// newOrderCode builds a payOS order code (int64, max 13 digits). Unix
// seconds plus a short random suffix keeps collisions unlikely.
func newOrderCode() int64 {
	return time.Now().Unix()%1_000_000_000*10_000 + int64(rand.Intn(9000)+1000)
}

func (p *payOSProvider) ChargeInitial(ctx context.Context, customerRef, paymentMethodRef string, amountMinor int64, metadata map[string]string) (*ChargeResult, error) {
	orderCode := newOrderCode()

	item := payos.Item{
		Name:     metadata["description"],
		Price:    int(amountMinor),
		Quantity: 1,
	}
	body := payos.CheckoutRequestType{
		OrderCode:   orderCode,
		Amount:      int(amountMinor),
		Items:       []payos.Item{item},
		Description: fmt.Sprintf("Initial payment for %s", customerRef),
		CancelUrl:   p.cfg.CancelURL,
		ReturnUrl:   p.cfg.ReturnURL,
	}

	resp, err := payos.CreatePaymentLink(body)
	if err != nil {
		return nil, fmt.Errorf("payos create link: %w", err)
	}

	// Link-based checkout settles via webhook, so the charge is
	// pending until payOS confirms it.
	return &ChargeResult{
		ProviderTxnID: TxnID(orderCode),
		Status:        ChargePending,
		CheckoutURL:   resp.CheckoutUrl,
	}, nil
}

func (p *payOSProvider) CreateRecurringSchedule(ctx context.Context, customerRef, paymentMethodRef string, installmentMinor int64, count int, frequency db_models.PlanFrequency, metadata map[string]string) (*ScheduleResult, error) {
	if count <= 0 {
		return nil, errors.New("schedule count must be positive")
	}
	base := newOrderCode()

	for i := 1; i <= count; i++ {
		item := payos.Item{
			Name:     fmt.Sprintf("Installment %d/%d", i, count),
			Price:    int(installmentMinor),
			Quantity: 1,
		}
		body := payos.CheckoutRequestType{
			OrderCode:   base + int64(i),
			Amount:      int(installmentMinor),
			Items:       []payos.Item{item},
			Description: fmt.Sprintf("Installment %d of %d for %s", i, count, customerRef),
			CancelUrl:   p.cfg.CancelURL,
			ReturnUrl:   p.cfg.ReturnURL,
		}
		if _, err := payos.CreatePaymentLink(body); err != nil {
			// Roll back the links already created so a retry does not
			// leave a partial schedule behind.
			reason := "schedule creation failed"
			for j := 1; j < i; j++ {
				_, _ = payos.CancelPaymentLink(strconv.FormatInt(base+int64(j), 10), &reason)
			}
			return nil, fmt.Errorf("payos create link %d/%d: %w", i, count, err)
		}
	}

	return &ScheduleResult{
		ProviderScheduleID: EncodeScheduleID(base, count),
		ProviderSubID:      fmt.Sprintf("payos-sub:%d", base),
		FirstBillingDate:   PeriodAfter(time.Now(), frequency),
	}, nil
}

func (p *payOSProvider) CancelSchedule(ctx context.Context, providerScheduleID string) (bool, error) {
	base, count, err := DecodeScheduleID(providerScheduleID)
	if err != nil {
		return false, err
	}
	reason := "order cancelled"
	for i := 1; i <= count; i++ {
		info, err := payos.GetPaymentLinkInformation(strconv.FormatInt(base+int64(i), 10))
		if err != nil {
			return false, fmt.Errorf("payos link info %d: %w", i, err)
		}
		if info.Status == "PAID" || info.Status == "CANCELLED" {
			continue
		}
		if _, err := payos.CancelPaymentLink(strconv.FormatInt(base+int64(i), 10), &reason); err != nil {
			return false, fmt.Errorf("payos cancel link %d: %w", i, err)
		}
	}
	return true, nil
}

func (p *payOSProvider) GetScheduleStatus(ctx context.Context, providerScheduleID string) (*ScheduleView, error) {
	base, count, err := DecodeScheduleID(providerScheduleID)
	if err != nil {
		return nil, err
	}

	paid, cancelled, expired := 0, 0, 0
	for i := 1; i <= count; i++ {
		info, err := payos.GetPaymentLinkInformation(strconv.FormatInt(base+int64(i), 10))
		if err != nil {
			return nil, fmt.Errorf("payos link info %d: %w", i, err)
		}
		switch info.Status {
		case "PAID":
			paid++
		case "CANCELLED":
			cancelled++
		case "EXPIRED":
			expired++
		}
	}

	view := &ScheduleView{CompletedCount: paid}
	switch {
	case paid == count:
		view.Status = ScheduleCompleted
	case cancelled > 0:
		view.Status = ScheduleCanceled
	case expired > 0:
		view.Status = SchedulePastDue
	default:
		view.Status = ScheduleActive
	}
	return view, nil
}

// TxnID renders an order code as the provider transaction id stored on
// payment rows.
func TxnID(orderCode int64) string {
	return fmt.Sprintf("payos:%d", orderCode)
}

func EncodeScheduleID(base int64, count int) string {
	return fmt.Sprintf("payos:%d:%d", base, count)
}

func DecodeScheduleID(scheduleID string) (int64, int, error) {
	parts := strings.Split(scheduleID, ":")
	if len(parts) != 3 || parts[0] != "payos" {
		return 0, 0, fmt.Errorf("malformed schedule id %q", scheduleID)
	}
	base, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed schedule id %q", scheduleID)
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("malformed schedule id %q", scheduleID)
	}
	return base, count, nil
}
