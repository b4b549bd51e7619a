package subscription_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/subscription"
)

// MockLedger is a mock implementation of subscription.Ledger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Create(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockLedger) Update(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockLedger) GetByID(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockLedger) GetByProviderSubID(ctx context.Context, providerSubID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockLedger) FindNonTerminal(ctx context.Context, userID, offerID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockLedger) ListByUser(ctx context.Context, userID uuid.UUID) ([]subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Subscription), args.Error(1)
}

func (m *MockLedger) DeleteTerminal(ctx context.Context, userID, offerID uuid.UUID) error {
	args := m.Called(ctx, userID, offerID)
	return args.Error(0)
}

func (m *MockLedger) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// MockCatalog is a mock implementation of subscription.Catalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Get(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*offer.Offer), args.Error(1)
}

func (m *MockCatalog) ActiveSubscriberCount(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	args := m.Called(ctx, tipsterID)
	return args.Int(0), args.Error(1)
}

func (m *MockCatalog) RepairRemotePrice(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*offer.Offer), args.Error(1)
}

// MockTipsterDirectory is a mock implementation of offer.TipsterDirectory.
type MockTipsterDirectory struct {
	mock.Mock
}

func (m *MockTipsterDirectory) OwnerUserID(ctx context.Context, tipsterID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, tipsterID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockGateway is a mock implementation of billing.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SyncProduct(ctx context.Context, spec billing.ProductSpec) (billing.ProductRefs, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(billing.ProductRefs), args.Error(1)
}

func (m *MockGateway) VerifyPrice(ctx context.Context, priceID string) error {
	args := m.Called(ctx, priceID)
	return args.Error(0)
}

func (m *MockGateway) CreateCheckout(ctx context.Context, spec billing.CheckoutSpec) (*billing.Checkout, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Checkout), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, providerSubID string, immediate bool) error {
	args := m.Called(ctx, providerSubID, immediate)
	return args.Error(0)
}

func (m *MockGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

// MockPayeeDirectory is a mock implementation of subscription.PayeeDirectory.
type MockPayeeDirectory struct {
	mock.Mock
}

func (m *MockPayeeDirectory) AccountStatus(ctx context.Context, tipsterID uuid.UUID) (billing.AccountStatusView, error) {
	args := m.Called(ctx, tipsterID)
	return args.Get(0).(billing.AccountStatusView), args.Error(1)
}
