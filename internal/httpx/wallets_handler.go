package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

type WalletsHandler struct {
	Ledger *wallet.Ledger
}

func (h *WalletsHandler) Register(r chi.Router) {
	r.Route("/wallets/{userId}", func(r chi.Router) {
		r.Get("/", h.balance)
		r.Get("/transactions", h.history)
		r.Post("/credit", h.credit)
		r.Post("/debit", h.debit)
	})
}

func (h *WalletsHandler) credit(w http.ResponseWriter, r *http.Request) {
	var req wallet.MovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.Ledger.Credit(r.Context(), chi.URLParam(r, "userId"), req.Amount, req.ReferenceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *WalletsHandler) debit(w http.ResponseWriter, r *http.Request) {
	var req wallet.MovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.Ledger.Debit(r.Context(), chi.URLParam(r, "userId"), req.Amount, req.ReferenceID)
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeJSON(w, http.StatusUnprocessableEntity, tx)
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, tx)
	}
}

func (h *WalletsHandler) balance(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Ledger.Balance(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (h *WalletsHandler) history(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	txs, err := h.Ledger.History(r.Context(), chi.URLParam(r, "userId"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []wallet.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
