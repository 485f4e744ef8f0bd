package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-checkout-saga/internal/orders"
	"github.com/ariefcatur/go-checkout-saga/internal/payment"
	"github.com/ariefcatur/go-checkout-saga/internal/refund"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

// HealthFunc reports dependency health; a "status" of "down" turns
// /healthz into a 503.
type HealthFunc func(ctx context.Context) map[string]string

func NewRouter(health HealthFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		stats := health(r.Context())
		code := http.StatusOK
		if stats["status"] == "down" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, stats)
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps validation errors to 400 and lookups to 404. Anything
// else is an infrastructure failure the caller may retry.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payment.ErrInvalidRequest),
		errors.Is(err, orders.ErrInvalidOrder),
		errors.Is(err, refund.ErrInvalidCommand),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidRequest),
		errors.Is(err, errValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, refund.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, orders.ErrInvalidTransition):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		slog.Default().Error("request failed", "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		writeMessage(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
	}
}

var errValidation = errors.New("invalid request")

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Join(errValidation, errors.New("invalid json"))
	}
	return nil
}
