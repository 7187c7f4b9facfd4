package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/cbtprep/cbtprep-backend/internal/paystack"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Payment errors surfaced to handlers.
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed by gateway")
)

// paymentStore is the payment persistence surface this service needs.
type paymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
	MarkSuccess(ctx context.Context, reference, unlockCode, channel string, paidAt time.Time) error
	MarkFailed(ctx context.Context, reference string) error
}

// gateway is the slice of the Paystack client this service drives.
type gateway interface {
	Initialize(ctx context.Context, email string, amountKobo int, reference string) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// InitializedPayment is returned to the client to begin checkout.
type InitializedPayment struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Amount           int    `json:"amount"`
}

// VerifiedPayment is the outcome of a verification call.
type VerifiedPayment struct {
	Reference  string  `json:"reference"`
	Status     string  `json:"status"`
	UnlockCode *string `json:"unlock_code,omitempty"`
}

// PaymentService runs the premium purchase flow: initialize a Paystack
// transaction, then verify it and mint an unlock code on success.
type PaymentService struct {
	cfg      *config.Config
	payments paymentStore
	gateway  gateway
	access   *AccessService
	log      zerolog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(cfg *config.Config, payments paymentStore, gw gateway, access *AccessService, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		cfg:      cfg,
		payments: payments,
		gateway:  gw,
		access:   access,
		log:      log.With().Str("component", "payment_service").Logger(),
	}
}

// Initialize creates a pending payment record and a Paystack transaction for
// the fixed premium price. The pending row is written first so a verify
// callback always finds its reference even if the client drops.
func (s *PaymentService) Initialize(ctx context.Context, userID int, email string) (*InitializedPayment, error) {
	reference := "cbt_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	payment := &model.Payment{
		Reference: reference,
		UserID:    userID,
		Amount:    s.cfg.PremiumPriceKobo,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	result, err := s.gateway.Initialize(ctx, email, s.cfg.PremiumPriceKobo, reference)
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}

	s.log.Info().
		Str("reference", reference).
		Int("user_id", userID).
		Int("amount", s.cfg.PremiumPriceKobo).
		Msg("Payment initialized")

	return &InitializedPayment{
		Reference:        reference,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Amount:           s.cfg.PremiumPriceKobo,
	}, nil
}

// Verify confirms a transaction with the gateway. On the first success it
// mints an unlock code, stores it on the payment, and redeems it immediately
// so the buyer is premium without a second step. Re-verifying a settled
// payment returns the stored outcome unchanged.
func (s *PaymentService) Verify(ctx context.Context, userID int, reference string) (*VerifiedPayment, error) {
	payment, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}

	if payment.Status != model.PaymentStatusPending {
		return &VerifiedPayment{
			Reference:  payment.Reference,
			Status:     string(payment.Status),
			UnlockCode: payment.UnlockCode,
		}, nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify with gateway: %w", err)
	}

	if result.Status != "success" {
		// Abandoned and pending transactions stay pending; only a hard
		// failure closes the record.
		if result.Status == "failed" {
			if err := s.payments.MarkFailed(ctx, reference); err != nil {
				return nil, fmt.Errorf("mark failed: %w", err)
			}
		}
		return nil, ErrPaymentNotConfirmed
	}

	code := newUnlockCode()
	paidAt := time.Now()
	if result.PaidAt != nil {
		paidAt = *result.PaidAt
	}
	if err := s.payments.MarkSuccess(ctx, reference, code, result.Channel, paidAt); err != nil {
		return nil, fmt.Errorf("mark success: %w", err)
	}

	// Reload rather than trust our own write: a concurrent verify may have
	// won the status guard with a different code.
	payment, err = s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("reload payment: %w", err)
	}

	if payment.UnlockCode != nil {
		if _, err := s.access.Authorize(ctx, userID, *payment.UnlockCode); err != nil {
			s.log.Error().Err(err).Str("reference", reference).Msg("Auto-redeem after verify failed")
		}
	}

	s.log.Info().
		Str("reference", reference).
		Int("user_id", userID).
		Msg("Payment verified")

	return &VerifiedPayment{
		Reference:  payment.Reference,
		Status:     string(payment.Status),
		UnlockCode: payment.UnlockCode,
	}, nil
}

// newUnlockCode mints a short random uppercase code.
func newUnlockCode() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "CBT-" + strings.ToUpper(uuid.New().String()[:10])
	}
	return "CBT-" + strings.ToUpper(hex.EncodeToString(buf))
}
