package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// premiumUserStore is the slice of user storage the access gate needs.
type premiumUserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	SetPremium(ctx context.Context, id int, premium bool) error
}

// unlockPaymentStore resolves unlock codes minted by successful payments.
type unlockPaymentStore interface {
	GetSuccessByUnlockCode(ctx context.Context, userID int, code string) (*model.Payment, error)
}

// AccessDecision is the gate's verdict for one authorization attempt.
type AccessDecision struct {
	Allowed  bool `json:"allowed"`
	Upgraded bool `json:"upgraded"`
}

// AccessService decides whether a user may start an exam session: premium
// flag, a code from the configured allow-list, or the unlock code of one of
// the user's success-status payments.
type AccessService struct {
	cfg      *config.Config
	users    premiumUserStore
	payments unlockPaymentStore
	log      zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(cfg *config.Config, users premiumUserStore, payments unlockPaymentStore, log zerolog.Logger) *AccessService {
	return &AccessService{
		cfg:      cfg,
		users:    users,
		payments: payments,
		log:      log.With().Str("component", "access_service").Logger(),
	}
}

// Authorize evaluates premium access for a user, optionally redeeming a code.
// Side effect (deliberate, once): the first valid manual code flips the
// user's premium flag, so later sessions need no code at all. An invalid code
// mutates nothing.
func (s *AccessService) Authorize(ctx context.Context, userID int, code string) (AccessDecision, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AccessDecision{}, fmt.Errorf("get user: %w", err)
	}

	if user.IsPremium {
		return AccessDecision{Allowed: true}, nil
	}

	if code == "" {
		return AccessDecision{}, nil
	}

	valid, err := s.codeValid(ctx, userID, code)
	if err != nil {
		return AccessDecision{}, err
	}
	if !valid {
		return AccessDecision{}, nil
	}

	if err := s.users.SetPremium(ctx, userID, true); err != nil {
		return AccessDecision{}, fmt.Errorf("upgrade user: %w", err)
	}

	s.log.Info().Int("user_id", userID).Msg("User upgraded to premium via unlock code")
	return AccessDecision{Allowed: true, Upgraded: true}, nil
}

func (s *AccessService) codeValid(ctx context.Context, userID int, code string) (bool, error) {
	for _, allowed := range s.cfg.UnlockCodes {
		if code == allowed {
			return true, nil
		}
	}

	_, err := s.payments.GetSuccessByUnlockCode(ctx, userID, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup unlock code: %w", err)
	}
	return true, nil
}
