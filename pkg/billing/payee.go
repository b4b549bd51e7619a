package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PayeeAccount is the locally tracked payout destination of a tipster.
// Capability flags mirror the remote account and are refreshed from
// payable-account notifications and explicit status pulls. A tipster can
// be monetized only while ChargesEnabled is true.
type PayeeAccount struct {
	TipsterID          uuid.UUID
	ProviderAccountID  string
	ChargesEnabled     bool
	PayoutsEnabled     bool
	OnboardingComplete bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PayeeStore persists payee accounts. Returns ErrAccountNotFound for
// missing rows.
type PayeeStore interface {
	Get(ctx context.Context, tipsterID uuid.UUID) (*PayeeAccount, error)
	GetByProviderAccountID(ctx context.Context, providerAccountID string) (*PayeeAccount, error)
	Save(ctx context.Context, account *PayeeAccount) error
}

// AccountGateway is the remote side of payee-account management.
type AccountGateway interface {
	// CreateAccount registers a payout destination for the given local
	// reference and returns the remote account ID.
	CreateAccount(ctx context.Context, reference uuid.UUID, email string) (string, error)
	// AccountStatus pulls the remote capability snapshot.
	AccountStatus(ctx context.Context, providerAccountID string) (PayeeAccountUpdate, error)
	// OnboardingLink issues a single-use onboarding URL for the account.
	OnboardingLink(ctx context.Context, providerAccountID, returnURL, refreshURL string) (string, error)
}

// AccountStatusView is the readiness summary exposed to callers.
type AccountStatusView struct {
	HasAccount         bool
	ProviderAccountID  string
	ChargesEnabled     bool
	PayoutsEnabled     bool
	OnboardingComplete bool
}

// PayeeService manages the local payee ledger and its remote counterpart.
type PayeeService struct {
	store   PayeeStore
	gateway AccountGateway
}

// NewPayeeService wires the payee ledger. Panics on nil dependencies so a
// misconfigured service fails at startup.
func NewPayeeService(store PayeeStore, gateway AccountGateway) *PayeeService {
	if store == nil {
		panic("billing: PayeeStore is required")
	}
	if gateway == nil {
		panic("billing: AccountGateway is required")
	}
	return &PayeeService{store: store, gateway: gateway}
}

// EnsureAccount returns the tipster's payee account, creating the remote
// account and the local row on first call. Idempotent.
func (s *PayeeService) EnsureAccount(ctx context.Context, tipsterID uuid.UUID, email string) (*PayeeAccount, error) {
	account, err := s.store.Get(ctx, tipsterID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	remoteID, err := s.gateway.CreateAccount(ctx, tipsterID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote payee account: %w", err)
	}

	now := time.Now().UTC()
	account = &PayeeAccount{
		TipsterID:         tipsterID,
		ProviderAccountID: remoteID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save payee account: %w", err)
	}
	return account, nil
}

// OnboardingLink issues an onboarding URL. The account is ensured first as
// an explicit step: ensure, then link, with no re-entry on failure.
func (s *PayeeService) OnboardingLink(ctx context.Context, tipsterID uuid.UUID, email, returnURL, refreshURL string) (string, error) {
	account, err := s.EnsureAccount(ctx, tipsterID, email)
	if err != nil {
		return "", err
	}
	return s.gateway.OnboardingLink(ctx, account.ProviderAccountID, returnURL, refreshURL)
}

// AccountStatus reports payee readiness from local state. No remote call;
// use SyncAccountStatus to refresh.
func (s *PayeeService) AccountStatus(ctx context.Context, tipsterID uuid.UUID) (AccountStatusView, error) {
	account, err := s.store.Get(ctx, tipsterID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return AccountStatusView{}, nil
		}
		return AccountStatusView{}, err
	}
	return AccountStatusView{
		HasAccount:         true,
		ProviderAccountID:  account.ProviderAccountID,
		ChargesEnabled:     account.ChargesEnabled,
		PayoutsEnabled:     account.PayoutsEnabled,
		OnboardingComplete: account.OnboardingComplete,
	}, nil
}

// ChargesEnabled reports whether the tipster's payout destination can
// accept charges. Missing accounts are simply not ready.
func (s *PayeeService) ChargesEnabled(ctx context.Context, tipsterID uuid.UUID) (bool, error) {
	account, err := s.store.Get(ctx, tipsterID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.ChargesEnabled, nil
}

// SyncAccountStatus pulls the remote capability snapshot and stores it.
// Idempotent, so transient failures are retried with backoff.
func (s *PayeeService) SyncAccountStatus(ctx context.Context, tipsterID uuid.UUID) error {
	account, err := s.store.Get(ctx, tipsterID)
	if err != nil {
		return err
	}

	var update PayeeAccountUpdate
	err = retryIdempotent(ctx, 3, func() error {
		var err error
		update, err = s.gateway.AccountStatus(ctx, account.ProviderAccountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pull payee account status: %w", err)
	}

	return s.apply(ctx, account, update)
}

// ApplyAccountEvent applies a payable-account notification. Updates for
// unknown accounts are dropped: the account may belong to another system
// or the local row may not exist yet, and the processor will resend.
func (s *PayeeService) ApplyAccountEvent(ctx context.Context, update PayeeAccountUpdate) error {
	account, err := s.store.GetByProviderAccountID(ctx, update.ProviderAccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil
		}
		return err
	}
	return s.apply(ctx, account, update)
}

func (s *PayeeService) apply(ctx context.Context, account *PayeeAccount, update PayeeAccountUpdate) error {
	account.ChargesEnabled = update.ChargesEnabled
	account.PayoutsEnabled = update.PayoutsEnabled
	account.OnboardingComplete = update.ChargesEnabled && update.DetailsSubmitted
	account.UpdatedAt = time.Now().UTC()
	return s.store.Save(ctx, account)
}
