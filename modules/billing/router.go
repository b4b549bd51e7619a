// Package billing exposes checkout, subscription management, payee
// onboarding, and the processor webhook endpoint.
package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/offer"
)

// Identity resolves the authenticated user of a request. The second
// return is false for anonymous requests. Authentication itself lives
// outside this module; any session or token layer can plug in here.
type Identity func(r *http.Request) (uuid.UUID, bool)

// RouterOptions wires the billing module's dependencies.
type RouterOptions struct {
	Subscriptions SubscriptionService
	Payees        PayeeService
	Tipsters      offer.TipsterDirectory
	Webhook       *WebhookHandler
	Identity      Identity
	Log           *slog.Logger
}

// Router mounts the billing module.
//
//	r.Mount("/billing", billing.Router(billing.RouterOptions{...}))
func Router(opts RouterOptions) chi.Router {
	if opts.Identity == nil {
		panic("billing module: Identity is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	h := &handlers{
		subs:     opts.Subscriptions,
		payees:   opts.Payees,
		tipsters: opts.Tipsters,
		identity: opts.Identity,
		log:      opts.Log,
	}

	r := chi.NewRouter()
	r.Post("/checkout", h.createCheckout)
	r.Get("/subscriptions", h.listSubscriptions)
	r.Post("/subscriptions/{subscriptionID}/cancel", h.cancelSubscription)

	r.Route("/payee", func(p chi.Router) {
		p.Get("/status", h.payeeStatus)
		p.Post("/onboarding-link", h.payeeOnboardingLink)
	})

	if opts.Webhook != nil {
		r.Post("/webhooks/paddle", opts.Webhook.ServeHTTP)
	}

	return r
}
