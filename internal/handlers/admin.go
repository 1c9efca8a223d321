package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mavrykpremium/orderbot/internal/db"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/orders"
	"github.com/mavrykpremium/orderbot/internal/renewal"
	"github.com/mavrykpremium/orderbot/internal/supply"
)

// RequireAdmin guards the admin API with a bearer token. With no token
// configured every admin request is refused; the deployment must opt in.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(h.config.AdminBearerToken)
		if token == "" {
			writeError(w, http.StatusForbidden, "admin API is not enabled")
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var params orders.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := h.orders.Create(r.Context(), params)
	switch {
	case errors.Is(err, orders.ErrEmptyFields), errors.Is(err, orders.ErrNoDuration):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.loggerFromContext(r.Context()).Error("order creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "order creation failed")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *Handlers) ExtendOrder(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	renewed, err := h.orders.Extend(r.Context(), code)
	switch {
	case errors.Is(err, db.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrNoDuration):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.loggerFromContext(r.Context()).Error("order extension failed",
			"order_code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "order extension failed")
		return
	}

	writeJSON(w, http.StatusOK, renewed)
}

// RenewOrder runs the payment-driven pipeline by hand, eligibility gate
// included. The response always carries the tri-state outcome.
func (h *Handlers) RenewOrder(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	res := h.renewer.RenewByCode(r.Context(), code)
	status := http.StatusOK
	if res.Kind == renewal.KindError {
		status = http.StatusUnprocessableEntity
	}

	resp := map[string]any{"kind": string(res.Kind)}
	if res.Reason != "" {
		resp["reason"] = res.Reason
	}
	if res.Order != nil {
		resp["order"] = res.Order
	}
	writeJSON(w, status, resp)
}

func (h *Handlers) PendingSupply(w http.ResponseWriter, r *http.Request) {
	pending, err := h.supply.ListPending(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("pending supply listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	type entry struct {
		Round    any     `json:"round"`
		OrderIDs []int64 `json:"order_ids"`
		OrderSum int64   `json:"order_sum"`
		QRLink   string  `json:"qr_link,omitempty"`
	}
	out := make([]entry, 0, len(pending))
	for _, p := range pending {
		out = append(out, entry{
			Round:    p.Payment,
			OrderIDs: p.OrderIDs,
			OrderSum: p.OrderSum,
			QRLink: supply.QRLink(supplierFromPayment(p), p.Payment.ExpectedAmount,
				p.Payment.RoundLabel),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) MarkSupplyPaid(w http.ResponseWriter, r *http.Request) {
	roundID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	var body struct {
		PaidAmount int64 `json:"paid_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.PaidAmount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "paid_amount must be positive")
		return
	}

	res, err := h.supply.MarkPaid(r.Context(), roundID, body.PaidAmount)
	switch {
	case errors.Is(err, db.ErrSupplyRoundNotFound):
		writeError(w, http.StatusNotFound, "round not found or already paid")
		return
	case err != nil:
		h.loggerFromContext(r.Context()).Error("supply settlement failed",
			"round_id", roundID, "error", err)
		writeError(w, http.StatusInternalServerError, "settlement failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func supplierFromPayment(p models.PendingSupply) models.Supplier {
	return models.Supplier{
		ID:         p.Payment.SourceID,
		Name:       p.Payment.SourceName,
		BankNumber: p.Payment.BankNumber,
		BankCode:   p.Payment.BankCode,
	}
}

// ListDueOrders returns the orders currently flagged as needing renewal.
func (h *Handlers) ListDueOrders(w http.ResponseWriter, r *http.Request) {
	const listLimit = 200

	due, err := h.dueList.DueForRenewal(r.Context(), listLimit)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("due order listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": due, "count": len(due)})
}

// ScanDueOrders triggers one due-order pass outside the schedule.
func (h *Handlers) ScanDueOrders(w http.ResponseWriter, r *http.Request) {
	due, err := h.scanner.Scan(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("due order scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"due": due, "count": len(due)})
}
