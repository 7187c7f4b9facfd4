package service

import (
	"context"
	"testing"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) SetPremium(ctx context.Context, id int, premium bool) error {
	args := m.Called(ctx, id, premium)
	return args.Error(0)
}

type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) GetSuccessByUnlockCode(ctx context.Context, userID int, code string) (*model.Payment, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func newTestAccessService(users *MockUserStore, payments *MockPaymentStore) *AccessService {
	cfg := &config.Config{UnlockCodes: []string{"08148800", "CBT2024", "PREPSTAR"}}
	return NewAccessService(cfg, users, payments, zerolog.Nop())
}

func TestAuthorize_PremiumUserNeedsNoCode(t *testing.T) {
	users := new(MockUserStore)
	payments := new(MockPaymentStore)
	svc := newTestAccessService(users, payments)

	users.On("GetByID", mock.Anything, 7).Return(&model.User{ID: 7, IsPremium: true}, nil)

	decision, err := svc.Authorize(context.Background(), 7, "")

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.Upgraded)
	users.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorize_NonPremiumWithoutCodeDenied(t *testing.T) {
	users := new(MockUserStore)
	payments := new(MockPaymentStore)
	svc := newTestAccessService(users, payments)

	users.On("GetByID", mock.Anything, 7).Return(&model.User{ID: 7}, nil)

	decision, err := svc.Authorize(context.Background(), 7, "")

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestAuthorize_AllowListCodeUpgrades(t *testing.T) {
	users := new(MockUserStore)
	payments := new(MockPaymentStore)
	svc := newTestAccessService(users, payments)

	users.On("GetByID", mock.Anything, 7).Return(&model.User{ID: 7}, nil)
	users.On("SetPremium", mock.Anything, 7, true).Return(nil)

	decision, err := svc.Authorize(context.Background(), 7, "CBT2024")

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, decision.Upgraded)
	users.AssertExpectations(t)
}

func TestAuthorize_PaymentCodeUpgrades(t *testing.T) {
	users := new(MockUserStore)
	payments := new(MockPaymentStore)
	svc := newTestAccessService(users, payments)

	code := "CBT-AB12CD34EF"
	users.On("GetByID", mock.Anything, 9).Return(&model.User{ID: 9}, nil)
	payments.On("GetSuccessByUnlockCode", mock.Anything, 9, code).
		Return(&model.Payment{UserID: 9, Status: model.PaymentStatusSuccess}, nil)
	users.On("SetPremium", mock.Anything, 9, true).Return(nil)

	decision, err := svc.Authorize(context.Background(), 9, code)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, decision.Upgraded)
}

func TestAuthorize_InvalidCodeMutatesNothing(t *testing.T) {
	users := new(MockUserStore)
	payments := new(MockPaymentStore)
	svc := newTestAccessService(users, payments)

	users.On("GetByID", mock.Anything, 9).Return(&model.User{ID: 9}, nil)
	payments.On("GetSuccessByUnlockCode", mock.Anything, 9, "WRONG").Return(nil, pgx.ErrNoRows)

	decision, err := svc.Authorize(context.Background(), 9, "WRONG")

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.False(t, decision.Upgraded)
	users.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything)
}
