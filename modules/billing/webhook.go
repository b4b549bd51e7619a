package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tipvault/tipvault/core"
	pay "github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/logger"
)

// maxWebhookBody caps webhook payload reads. Processor payloads are small;
// anything larger is not one.
const maxWebhookBody = 1 << 20

// WebhookParser authenticates and normalizes a raw webhook payload.
type WebhookParser interface {
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*pay.Event, error)
}

// EventApplier reconciles a normalized subscription event.
type EventApplier interface {
	Apply(ctx context.Context, ev *pay.Event) error
}

// AccountEventApplier applies payee-account capability updates.
type AccountEventApplier interface {
	ApplyAccountEvent(ctx context.Context, update pay.PayeeAccountUpdate) error
}

// WebhookHandler is the processor notification endpoint.
//
// The response code is a contract with the processor: 2xx acknowledges the
// event (including ones deliberately dropped), 4xx rejects a payload that
// will never become valid, 5xx asks for redelivery.
type WebhookHandler struct {
	parser     WebhookParser
	reconciler EventApplier
	payees     AccountEventApplier
	log        *slog.Logger
}

// NewWebhookHandler wires the webhook endpoint. Panics on nil
// dependencies.
func NewWebhookHandler(parser WebhookParser, reconciler EventApplier, payees AccountEventApplier, log *slog.Logger) *WebhookHandler {
	if parser == nil {
		panic("billing module: WebhookParser is required")
	}
	if reconciler == nil {
		panic("billing module: EventApplier is required")
	}
	if payees == nil {
		panic("billing module: AccountEventApplier is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{parser: parser, reconciler: reconciler, payees: payees, log: log}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The signature covers the exact bytes on the wire, so the body must
	// reach the verifier unparsed.
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to read webhook body", logger.Error(err))
		core.WriteError(w, err)
		return
	}

	ev, err := h.parser.ParseWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		if errors.Is(err, pay.ErrWebhookSignature) {
			h.log.WarnContext(r.Context(), "rejected webhook with bad signature")
		} else {
			h.log.WarnContext(r.Context(), "rejected malformed webhook", logger.Error(err))
		}
		core.WriteError(w, errors.Join(pay.ErrWebhookSignature, err))
		return
	}

	if ev.Category == pay.EventPayeeAccountUpdated && ev.Account != nil {
		err = h.payees.ApplyAccountEvent(r.Context(), *ev.Account)
	} else {
		err = h.reconciler.Apply(r.Context(), ev)
	}
	if err != nil {
		// Infrastructure failure: a 5xx makes the processor redeliver.
		h.log.ErrorContext(r.Context(), "failed to apply webhook event",
			slog.String("event_id", ev.ID),
			logger.EventType(ev.ProviderEvent),
			logger.Error(err))
		http.Error(w, "event processing failed", http.StatusInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
