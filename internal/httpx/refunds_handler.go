package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-checkout-saga/internal/refund"
)

type RefundsHandler struct {
	Step *refund.Step
}

func (h *RefundsHandler) Register(r chi.Router) {
	r.Post("/refunds", h.processRefund)
	r.Get("/refunds/{sagaId}", h.getRefund)
}

func (h *RefundsHandler) processRefund(w http.ResponseWriter, r *http.Request) {
	var cmd refund.Command
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, r, err)
		return
	}
	rf, err := h.Step.Process(r.Context(), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if !rf.Completed() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, rf)
}

func (h *RefundsHandler) getRefund(w http.ResponseWriter, r *http.Request) {
	rf, err := h.Step.Service.Get(r.Context(), chi.URLParam(r, "sagaId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rf)
}
