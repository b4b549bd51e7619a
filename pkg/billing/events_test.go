package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	offerID := uuid.New()
	tipsterID := uuid.New()
	custom := map[string]any{
		"user_id":     userID.String(),
		"offer_id":    offerID.String(),
		"tipster_id":  tipsterID.String(),
		"fee_percent": "8",
	}

	t.Run("subscription created", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_1", "subscription.created", "2025-06-01T10:00:00Z", map[string]any{
			"id":          "sub_1",
			"status":      "trialing",
			"custom_data": custom,
			"current_billing_period": map[string]any{
				"ends_at": "2025-06-08T10:00:00Z",
			},
		})

		assert.Equal(t, EventSubscriptionCreated, ev.Category)
		assert.Equal(t, "sub_1", ev.ProviderSubID)
		assert.Equal(t, StateTrialing, ev.State)
		assert.Equal(t, userID, ev.UserID)
		assert.Equal(t, offerID, ev.OfferID)
		assert.Equal(t, tipsterID, ev.TipsterID)
		assert.Equal(t, 8, ev.FeePercent)
		assert.True(t, ev.HasCorrelation())
		require.NotNil(t, ev.PeriodEnd)
		assert.Equal(t, time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), ev.PeriodEnd.UTC())
		assert.Equal(t, ev.PeriodEnd, ev.TrialEnd, "trialing snapshots carry the trial end")
	})

	t.Run("scheduled cancel maps to cancel at period end", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_2", "subscription.updated", "2025-06-02T10:00:00Z", map[string]any{
			"id":     "sub_1",
			"status": "active",
			"scheduled_change": map[string]any{
				"action": "cancel",
			},
		})

		assert.Equal(t, EventSubscriptionUpdated, ev.Category)
		assert.Equal(t, StateActive, ev.State)
		assert.True(t, ev.CancelAtPeriodEnd)
	})

	t.Run("subscription canceled forces terminal state", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_3", "subscription.canceled", "2025-06-03T10:00:00Z", map[string]any{
			"id":     "sub_1",
			"status": "canceled",
		})

		assert.Equal(t, EventSubscriptionDeleted, ev.Category)
		assert.Equal(t, StateCanceled, ev.State)
	})

	t.Run("transaction without subscription is a one-time purchase", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_4", "transaction.completed", "2025-06-04T10:00:00Z", map[string]any{
			"id":          "txn_1",
			"custom_data": custom,
		})

		assert.Equal(t, EventCheckoutCompleted, ev.Category)
		assert.True(t, ev.OneTime)
		assert.Empty(t, ev.ProviderSubID)
		assert.Equal(t, StateActive, ev.State)
	})

	t.Run("transaction with subscription is a renewal", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_5", "transaction.completed", "2025-06-05T10:00:00Z", map[string]any{
			"id":              "txn_2",
			"subscription_id": "sub_1",
			"billing_period": map[string]any{
				"ends_at": "2025-07-05T10:00:00Z",
			},
		})

		assert.Equal(t, EventInvoicePaid, ev.Category)
		assert.False(t, ev.OneTime)
		assert.Equal(t, "sub_1", ev.ProviderSubID)
		require.NotNil(t, ev.PeriodEnd)
	})

	t.Run("failed payment marks past due", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_6", "transaction.payment_failed", "2025-06-06T10:00:00Z", map[string]any{
			"subscription_id": "sub_1",
		})

		assert.Equal(t, EventInvoicePaymentFailed, ev.Category)
		assert.Equal(t, StatePastDue, ev.State)
	})

	t.Run("account update carries the capability snapshot", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_7", "account.updated", "2025-06-07T10:00:00Z", map[string]any{
			"id":                "acct_1",
			"charges_enabled":   true,
			"payouts_enabled":   false,
			"details_submitted": true,
		})

		assert.Equal(t, EventPayeeAccountUpdated, ev.Category)
		require.NotNil(t, ev.Account)
		assert.Equal(t, "acct_1", ev.Account.ProviderAccountID)
		assert.True(t, ev.Account.ChargesEnabled)
		assert.False(t, ev.Account.PayoutsEnabled)
		assert.True(t, ev.Account.DetailsSubmitted)
	})

	t.Run("unrecognized event types are acknowledged as unknown", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_8", "address.created", "2025-06-08T10:00:00Z", map[string]any{})

		assert.Equal(t, EventUnknown, ev.Category)
		assert.Equal(t, "address.created", ev.ProviderEvent)
	})

	t.Run("missing correlation metadata is tolerated", func(t *testing.T) {
		t.Parallel()
		ev := normalizeEvent("evt_9", "subscription.updated", "2025-06-09T10:00:00Z", map[string]any{
			"id":     "sub_2",
			"status": "active",
		})

		assert.False(t, ev.HasCorrelation())
		assert.Equal(t, uuid.Nil, ev.UserID)
	})
}

func TestMapProviderState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateTrialing, mapProviderState("trialing"))
	assert.Equal(t, StateActive, mapProviderState("Active"))
	assert.Equal(t, StatePastDue, mapProviderState("past_due"))
	assert.Equal(t, StatePastDue, mapProviderState("unpaid"))
	assert.Equal(t, StateCanceled, mapProviderState("canceled"))
	assert.Equal(t, StateCanceled, mapProviderState("cancelled"))
}
