package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleConfig holds configuration for the Paddle-backed gateway.
type PaddleConfig struct {
	APIKey        string        `env:"PADDLE_API_KEY,required"`
	WebhookSecret string        `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	CallTimeout   time.Duration `env:"PADDLE_CALL_TIMEOUT" envDefault:"15s"`
}

// PaddleGateway implements Gateway against Paddle.
type PaddleGateway struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	cfg      PaddleConfig
}

// NewPaddleGateway creates a Paddle-backed gateway.
func NewPaddleGateway(cfg PaddleConfig) (*PaddleGateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, errors.Join(ErrInvalidEnvironment, fmt.Errorf("environment %q", cfg.Environment))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleGateway{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		cfg:      cfg,
	}, nil
}

// SyncProduct creates a fresh product+price pair on the platform account.
func (g *PaddleGateway) SyncProduct(ctx context.Context, spec ProductSpec) (ProductRefs, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	productReq := &paddle.CreateProductRequest{
		Name:        spec.Name,
		TaxCategory: paddle.TaxCategoryStandard,
		CustomData: paddle.CustomData{
			"offer_id":   spec.OfferID.String(),
			"tipster_id": spec.TipsterID.String(),
		},
	}
	if spec.Description != "" {
		productReq.Description = paddle.PtrTo(spec.Description)
	}

	product, err := g.client.ProductsClient.CreateProduct(ctx, productReq)
	if err != nil {
		return ProductRefs{}, classifyRemote(fmt.Errorf("failed to create paddle product: %w", err))
	}

	priceReq := &paddle.CreatePriceRequest{
		ProductID:   product.ID,
		Description: spec.Name,
		UnitPrice: paddle.Money{
			Amount:       strconv.FormatInt(spec.Price, 10),
			CurrencyCode: paddle.CurrencyCode(strings.ToUpper(spec.Currency)),
		},
		CustomData: paddle.CustomData{
			"offer_id":   spec.OfferID.String(),
			"tipster_id": spec.TipsterID.String(),
		},
	}
	if spec.Interval != IntervalNone {
		priceReq.BillingCycle = &paddle.Duration{
			Interval:  paddle.Interval(spec.Interval),
			Frequency: 1,
		}
		if spec.TrialDays > 0 {
			priceReq.TrialPeriod = &paddle.Duration{
				Interval:  paddle.IntervalDay,
				Frequency: spec.TrialDays,
			}
		}
	}

	price, err := g.client.PricesClient.CreatePrice(ctx, priceReq)
	if err != nil {
		return ProductRefs{}, classifyRemote(fmt.Errorf("failed to create paddle price: %w", err))
	}

	return ProductRefs{ProductID: product.ID, PriceID: price.ID}, nil
}

// VerifyPrice confirms the cached price reference still resolves remotely.
// Transient failures are retried; a reference that does not resolve after
// that returns ErrPriceNotFound so the caller can recreate the pair.
func (g *PaddleGateway) VerifyPrice(ctx context.Context, priceID string) error {
	if priceID == "" {
		return ErrPriceNotFound
	}

	err := retryIdempotent(ctx, 3, func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
		_, err := g.client.PricesClient.GetPrice(callCtx, &paddle.GetPriceRequest{PriceID: priceID})
		return classifyRemote(err)
	})
	if err != nil {
		if errors.Is(err, ErrRemoteTransient) {
			return err
		}
		return errors.Join(ErrPriceNotFound, err)
	}
	return nil
}

// CreateCheckout creates a hosted checkout transaction. The user/offer
// correlation and the frozen fee percent travel in custom data so webhook
// notifications can be reconciled without a session lookup.
func (g *PaddleGateway) CreateCheckout(ctx context.Context, spec CheckoutSpec) (*Checkout, error) {
	if spec.PriceID == "" {
		return nil, errors.New("billing: price ID is required")
	}
	if spec.UserID == uuid.Nil || spec.OfferID == uuid.Nil {
		return nil, errors.New("billing: user and offer correlation is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  spec.PriceID,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id":          spec.UserID.String(),
			"offer_id":         spec.OfferID.String(),
			"tipster_id":       spec.TipsterID.String(),
			"payee_account_id": spec.PayeeAccountID,
			"fee_percent":      strconv.Itoa(spec.FeePercent),
			"fee_amount":       strconv.FormatInt(spec.FeeAmount, 10),
			"one_time":         strconv.FormatBool(spec.OneTime),
		},
	}
	if spec.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(spec.SuccessURL),
		}
	}

	tx, err := g.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, classifyRemote(fmt.Errorf("failed to create paddle transaction: %w", err))
	}

	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &Checkout{
		URL:       *tx.Checkout.URL,
		SessionID: tx.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour), // hosted checkout links expire after 24h
	}, nil
}

// CancelSubscription terminates a recurring agreement.
func (g *PaddleGateway) CancelSubscription(ctx context.Context, providerSubID string, immediate bool) error {
	if providerSubID == "" {
		return errors.New("billing: provider subscription ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	effective := paddle.EffectiveFromNextBillingPeriod
	if immediate {
		effective = paddle.EffectiveFromImmediately
	}

	_, err := g.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(effective),
	})
	if err != nil {
		return classifyRemote(fmt.Errorf("failed to cancel paddle subscription: %w", err))
	}
	return nil
}

// ParseWebhook verifies the signature over the exact raw payload bytes and
// normalizes the notification.
func (g *PaddleGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The verifier consumes an HTTP request; rebuild one around the raw
	// bytes so no upstream transformation can break the signature.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := g.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookSignature, err)
	}
	if !valid {
		return nil, ErrWebhookSignature
	}

	var envelope struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	return normalizeEvent(envelope.EventID, envelope.EventType, envelope.OccurredAt, envelope.Data), nil
}

// normalizeEvent maps a raw processor notification to an Event. Split out
// of ParseWebhook so the mapping is testable without a signed payload.
func normalizeEvent(eventID, eventType, occurredAt string, data map[string]any) *Event {
	ev := &Event{
		ID:            eventID,
		Category:      EventUnknown,
		ProviderEvent: eventType,
		Raw:           data,
	}
	if ts, err := time.Parse(time.RFC3339, occurredAt); err == nil {
		ev.OccurredAt = ts
	}

	custom, _ := data["custom_data"].(map[string]any)
	ev.UserID = uuidField(custom, "user_id")
	ev.OfferID = uuidField(custom, "offer_id")
	ev.TipsterID = uuidField(custom, "tipster_id")
	if pct, err := strconv.Atoi(stringField(custom, "fee_percent")); err == nil {
		ev.FeePercent = pct
	}

	switch {
	case strings.HasPrefix(eventType, "subscription."):
		ev.ProviderSubID = stringField(data, "id")
		ev.State = mapProviderState(stringField(data, "status"))
		ev.PeriodEnd = billingPeriodEnd(data)
		if ev.State == StateTrialing {
			ev.TrialEnd = ev.PeriodEnd
		}
		if change, ok := data["scheduled_change"].(map[string]any); ok {
			ev.CancelAtPeriodEnd = stringField(change, "action") == "cancel"
		}

		switch eventType {
		case "subscription.created":
			ev.Category = EventSubscriptionCreated
		case "subscription.updated", "subscription.resumed", "subscription.paused":
			ev.Category = EventSubscriptionUpdated
		case "subscription.canceled":
			ev.Category = EventSubscriptionDeleted
			ev.State = StateCanceled
		}

	case strings.HasPrefix(eventType, "transaction."):
		ev.ProviderSubID = stringField(data, "subscription_id")
		ev.PeriodEnd = billingPeriodEnd(data)

		switch eventType {
		case "transaction.completed":
			if ev.ProviderSubID == "" {
				// One-time (lifetime) purchase: no recurring agreement
				// will ever reference this transaction.
				ev.Category = EventCheckoutCompleted
				ev.OneTime = true
				ev.State = StateActive
			} else {
				// Renewal charge against an existing agreement.
				ev.Category = EventInvoicePaid
				ev.State = StateActive
			}
		case "transaction.payment_failed":
			ev.Category = EventInvoicePaymentFailed
			ev.State = StatePastDue
		}

	case eventType == "account.updated":
		ev.Category = EventPayeeAccountUpdated
		ev.Account = &PayeeAccountUpdate{
			ProviderAccountID: stringField(data, "id"),
			ChargesEnabled:    boolField(data, "charges_enabled"),
			PayoutsEnabled:    boolField(data, "payouts_enabled"),
			DetailsSubmitted:  boolField(data, "details_submitted"),
		}
	}

	return ev
}

// mapProviderState maps a processor status string onto the normalized set.
func mapProviderState(s string) SubscriptionState {
	switch strings.ToLower(s) {
	case "trialing":
		return StateTrialing
	case "active":
		return StateActive
	case "past_due", "unpaid":
		return StatePastDue
	case "canceled", "cancelled":
		return StateCanceled
	default:
		return SubscriptionState(strings.ToLower(s))
	}
}

func billingPeriodEnd(data map[string]any) *time.Time {
	for _, key := range []string{"current_billing_period", "billing_period"} {
		if period, ok := data[key].(map[string]any); ok {
			if ts, err := time.Parse(time.RFC3339, stringField(period, "ends_at")); err == nil {
				return &ts
			}
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func uuidField(m map[string]any, key string) uuid.UUID {
	id, err := uuid.Parse(stringField(m, key))
	if err != nil {
		return uuid.Nil
	}
	return id
}
