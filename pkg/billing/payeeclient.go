package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PayeeClientConfig configures the partner-accounts API client. The
// processor SDK does not cover the partner surface, so the adapter talks
// to it directly.
type PayeeClientConfig struct {
	BaseURL     string        `env:"PAYEE_API_URL,required"`
	APIKey      string        `env:"PAYEE_API_KEY,required"`
	CallTimeout time.Duration `env:"PAYEE_CALL_TIMEOUT" envDefault:"15s"`
}

// PayeeClient implements AccountGateway over the processor's partner
// accounts REST API.
type PayeeClient struct {
	cfg  PayeeClientConfig
	http *http.Client
}

// NewPayeeClient creates a partner-accounts API client.
func NewPayeeClient(cfg PayeeClientConfig) (*PayeeClient, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	return &PayeeClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.CallTimeout},
	}, nil
}

func (c *PayeeClient) CreateAccount(ctx context.Context, reference uuid.UUID, email string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/accounts", map[string]string{
		"reference": reference.String(),
		"email":     email,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *PayeeClient) AccountStatus(ctx context.Context, providerAccountID string) (PayeeAccountUpdate, error) {
	var out struct {
		ID               string `json:"id"`
		ChargesEnabled   bool   `json:"charges_enabled"`
		PayoutsEnabled   bool   `json:"payouts_enabled"`
		DetailsSubmitted bool   `json:"details_submitted"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+providerAccountID, nil, &out)
	if err != nil {
		return PayeeAccountUpdate{}, err
	}
	return PayeeAccountUpdate{
		ProviderAccountID: out.ID,
		ChargesEnabled:    out.ChargesEnabled,
		PayoutsEnabled:    out.PayoutsEnabled,
		DetailsSubmitted:  out.DetailsSubmitted,
	}, nil
}

func (c *PayeeClient) OnboardingLink(ctx context.Context, providerAccountID, returnURL, refreshURL string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+providerAccountID+"/onboarding-links", map[string]string{
		"return_url":  returnURL,
		"refresh_url": refreshURL,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *PayeeClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrRemoteTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrAccountNotFound
	case resp.StatusCode >= 500:
		return errors.Join(ErrRemoteTransient, fmt.Errorf("partner API status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("partner API status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode partner API response: %w", err)
		}
	}
	return nil
}
