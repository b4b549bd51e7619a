package billing_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tipvault/tipvault/pkg/billing"
)

// MockPayeeStore is a mock implementation of billing.PayeeStore.
type MockPayeeStore struct {
	mock.Mock
}

func (m *MockPayeeStore) Get(ctx context.Context, tipsterID uuid.UUID) (*billing.PayeeAccount, error) {
	args := m.Called(ctx, tipsterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PayeeAccount), args.Error(1)
}

func (m *MockPayeeStore) GetByProviderAccountID(ctx context.Context, providerAccountID string) (*billing.PayeeAccount, error) {
	args := m.Called(ctx, providerAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PayeeAccount), args.Error(1)
}

func (m *MockPayeeStore) Save(ctx context.Context, account *billing.PayeeAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockAccountGateway is a mock implementation of billing.AccountGateway.
type MockAccountGateway struct {
	mock.Mock
}

func (m *MockAccountGateway) CreateAccount(ctx context.Context, reference uuid.UUID, email string) (string, error) {
	args := m.Called(ctx, reference, email)
	return args.String(0), args.Error(1)
}

func (m *MockAccountGateway) AccountStatus(ctx context.Context, providerAccountID string) (billing.PayeeAccountUpdate, error) {
	args := m.Called(ctx, providerAccountID)
	return args.Get(0).(billing.PayeeAccountUpdate), args.Error(1)
}

func (m *MockAccountGateway) OnboardingLink(ctx context.Context, providerAccountID, returnURL, refreshURL string) (string, error) {
	args := m.Called(ctx, providerAccountID, returnURL, refreshURL)
	return args.String(0), args.Error(1)
}

func TestPayeeServiceEnsureAccount(t *testing.T) {
	t.Parallel()

	tipsterID := uuid.New()

	t.Run("creates remote account on first call", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		gateway := &MockAccountGateway{}
		store.On("Get", mock.Anything, tipsterID).Return(nil, billing.ErrAccountNotFound)
		gateway.On("CreateAccount", mock.Anything, tipsterID, "t@example.com").Return("acct_1", nil)
		store.On("Save", mock.Anything, mock.MatchedBy(func(a *billing.PayeeAccount) bool {
			return a.ProviderAccountID == "acct_1" && !a.ChargesEnabled
		})).Return(nil)

		svc := billing.NewPayeeService(store, gateway)
		account, err := svc.EnsureAccount(context.Background(), tipsterID, "t@example.com")

		require.NoError(t, err)
		assert.Equal(t, "acct_1", account.ProviderAccountID)
		gateway.AssertExpectations(t)
	})

	t.Run("is idempotent once the account exists", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		gateway := &MockAccountGateway{}
		store.On("Get", mock.Anything, tipsterID).
			Return(&billing.PayeeAccount{TipsterID: tipsterID, ProviderAccountID: "acct_1"}, nil)

		svc := billing.NewPayeeService(store, gateway)
		account, err := svc.EnsureAccount(context.Background(), tipsterID, "t@example.com")

		require.NoError(t, err)
		assert.Equal(t, "acct_1", account.ProviderAccountID)
		gateway.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPayeeServiceOnboardingLink(t *testing.T) {
	t.Parallel()

	tipsterID := uuid.New()

	store := &MockPayeeStore{}
	gateway := &MockAccountGateway{}
	store.On("Get", mock.Anything, tipsterID).
		Return(&billing.PayeeAccount{TipsterID: tipsterID, ProviderAccountID: "acct_1"}, nil)
	gateway.On("OnboardingLink", mock.Anything, "acct_1", "https://app/return", "https://app/refresh").
		Return("https://onboard/acct_1", nil)

	svc := billing.NewPayeeService(store, gateway)
	url, err := svc.OnboardingLink(context.Background(), tipsterID, "t@example.com", "https://app/return", "https://app/refresh")

	require.NoError(t, err)
	assert.Equal(t, "https://onboard/acct_1", url)
}

func TestPayeeServiceChargesEnabled(t *testing.T) {
	t.Parallel()

	tipsterID := uuid.New()

	t.Run("missing account is simply not ready", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		store.On("Get", mock.Anything, tipsterID).Return(nil, billing.ErrAccountNotFound)

		svc := billing.NewPayeeService(store, &MockAccountGateway{})
		ready, err := svc.ChargesEnabled(context.Background(), tipsterID)

		require.NoError(t, err)
		assert.False(t, ready)
	})

	t.Run("reflects the stored capability flag", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		store.On("Get", mock.Anything, tipsterID).
			Return(&billing.PayeeAccount{TipsterID: tipsterID, ChargesEnabled: true}, nil)

		svc := billing.NewPayeeService(store, &MockAccountGateway{})
		ready, err := svc.ChargesEnabled(context.Background(), tipsterID)

		require.NoError(t, err)
		assert.True(t, ready)
	})
}

func TestPayeeServiceApplyAccountEvent(t *testing.T) {
	t.Parallel()

	t.Run("updates the matching account", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		account := &billing.PayeeAccount{TipsterID: uuid.New(), ProviderAccountID: "acct_1"}
		store.On("GetByProviderAccountID", mock.Anything, "acct_1").Return(account, nil)
		store.On("Save", mock.Anything, mock.MatchedBy(func(a *billing.PayeeAccount) bool {
			return a.ChargesEnabled && a.PayoutsEnabled && a.OnboardingComplete
		})).Return(nil)

		svc := billing.NewPayeeService(store, &MockAccountGateway{})
		err := svc.ApplyAccountEvent(context.Background(), billing.PayeeAccountUpdate{
			ProviderAccountID: "acct_1",
			ChargesEnabled:    true,
			PayoutsEnabled:    true,
			DetailsSubmitted:  true,
		})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("onboarding stays incomplete without submitted details", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		account := &billing.PayeeAccount{TipsterID: uuid.New(), ProviderAccountID: "acct_1"}
		store.On("GetByProviderAccountID", mock.Anything, "acct_1").Return(account, nil)
		store.On("Save", mock.Anything, mock.MatchedBy(func(a *billing.PayeeAccount) bool {
			return a.ChargesEnabled && !a.OnboardingComplete
		})).Return(nil)

		svc := billing.NewPayeeService(store, &MockAccountGateway{})
		err := svc.ApplyAccountEvent(context.Background(), billing.PayeeAccountUpdate{
			ProviderAccountID: "acct_1",
			ChargesEnabled:    true,
			DetailsSubmitted:  false,
		})

		require.NoError(t, err)
	})

	t.Run("drops updates for unknown accounts", func(t *testing.T) {
		t.Parallel()
		store := &MockPayeeStore{}
		store.On("GetByProviderAccountID", mock.Anything, "acct_x").Return(nil, billing.ErrAccountNotFound)

		svc := billing.NewPayeeService(store, &MockAccountGateway{})
		err := svc.ApplyAccountEvent(context.Background(), billing.PayeeAccountUpdate{ProviderAccountID: "acct_x"})

		require.NoError(t, err)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
