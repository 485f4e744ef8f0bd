package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-checkout-saga/internal/payment"
)

type PaymentsHandler struct {
	Service *payment.Service
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/payments/process-payment", h.processPayment)
	r.Get("/payments/{sagaId}", h.getPayment)
}

// processPayment answers a declined payment with 422 and the stored
// transaction, distinct from 503 for an unavailable store.
func (h *PaymentsHandler) processPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.Service.ProcessPayment(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if !tx.Succeeded() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, tx)
}

func (h *PaymentsHandler) getPayment(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Service.Get(r.Context(), chi.URLParam(r, "sagaId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
