package offer_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/offer"
)

// MockStore is a mock implementation of offer.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, o *offer.Offer) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, o *offer.Offer) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*offer.Offer), args.Error(1)
}

func (m *MockStore) ListByTipster(ctx context.Context, tipsterID uuid.UUID, includeInactive bool) ([]offer.Offer, error) {
	args := m.Called(ctx, tipsterID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]offer.Offer), args.Error(1)
}

func (m *MockStore) SetProviderRefs(ctx context.Context, id uuid.UUID, productID, priceID string) error {
	args := m.Called(ctx, id, productID, priceID)
	return args.Error(0)
}

func (m *MockStore) SubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	args := m.Called(ctx, offerID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ActiveSubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	args := m.Called(ctx, offerID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ActiveSubscriberCountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	args := m.Called(ctx, tipsterID)
	return args.Int(0), args.Error(1)
}

// MockTipsterDirectory is a mock implementation of offer.TipsterDirectory.
type MockTipsterDirectory struct {
	mock.Mock
}

func (m *MockTipsterDirectory) OwnerUserID(ctx context.Context, tipsterID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, tipsterID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockProductSyncer is a mock implementation of offer.ProductSyncer.
type MockProductSyncer struct {
	mock.Mock
}

func (m *MockProductSyncer) SyncProduct(ctx context.Context, spec billing.ProductSpec) (billing.ProductRefs, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(billing.ProductRefs), args.Error(1)
}

// MockPayeeChecker is a mock implementation of offer.PayeeChecker.
type MockPayeeChecker struct {
	mock.Mock
}

func (m *MockPayeeChecker) ChargesEnabled(ctx context.Context, tipsterID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tipsterID)
	return args.Bool(0), args.Error(1)
}
