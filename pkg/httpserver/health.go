package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tipvault/tipvault/pkg/logger"
)

// Healthz is a liveness probe. It answers 200 as long as the process
// can serve HTTP at all.
func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ALIVE"))
	}
}

// Readyz is a readiness probe. Each check pings a dependency; the first
// failure turns the probe into a 500 so the load balancer drains traffic.
func Readyz(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
