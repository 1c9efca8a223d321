package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/mavrykpremium/orderbot/internal/config"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/orders"
	"github.com/mavrykpremium/orderbot/internal/renewal"
	"github.com/mavrykpremium/orderbot/internal/supply"
)

type stubOrders struct {
	created  *models.Order
	extended *models.RenewedOrder
	err      error
}

func (s *stubOrders) Create(_ context.Context, _ orders.CreateParams) (*models.Order, error) {
	return s.created, s.err
}

func (s *stubOrders) Extend(_ context.Context, _ string) (*models.RenewedOrder, error) {
	return s.extended, s.err
}

type stubRenewer struct{ res renewal.Result }

func (s *stubRenewer) RenewByCode(context.Context, string) renewal.Result { return s.res }

type stubSupply struct {
	pending []models.PendingSupply
	settled *supply.Settlement
	err     error
}

func (s *stubSupply) ListPending(context.Context) ([]models.PendingSupply, error) {
	return s.pending, s.err
}

func (s *stubSupply) MarkPaid(context.Context, int64, int64) (*supply.Settlement, error) {
	return s.settled, s.err
}

func newAdminHandlers(t *testing.T, o *stubOrders, r *stubRenewer, s *stubSupply) *Handlers {
	t.Helper()
	return &Handlers{
		config:  &config.Config{AdminBearerToken: "secret-token"},
		orders:  o,
		renewer: r,
		supply:  s,
		logger:  slog.New(slog.DiscardHandler),
	}
}

func TestRequireAdmin(t *testing.T) {
	h := newAdminHandlers(t, &stubOrders{}, &stubRenewer{}, &stubSupply{})
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guard := h.RequireAdmin(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer secret-token", want: http.StatusNoContent},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/supply/pending", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireAdminDisabledWithoutToken(t *testing.T) {
	h := newAdminHandlers(t, &stubOrders{}, &stubRenewer{}, &stubSupply{})
	h.config = &config.Config{}
	guard := h.RequireAdmin(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/supply/pending", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCreateOrderHandler(t *testing.T) {
	h := newAdminHandlers(t, &stubOrders{created: &models.Order{Code: "MAVL1234567"}},
		&stubRenewer{}, &stubSupply{})

	body, _ := json.Marshal(orders.CreateParams{
		TierPrefix: "MAVL", Product: "Netflix--1m", Source: "x", ImportPrice: "80k",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != "MAVL1234567" {
		t.Errorf("code = %s", got.Code)
	}
}

func TestCreateOrderHandlerValidation(t *testing.T) {
	h := newAdminHandlers(t, &stubOrders{err: orders.ErrEmptyFields}, &stubRenewer{}, &stubSupply{})

	req := httptest.NewRequest(http.MethodPost, "/admin/orders", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.CreateOrder(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/orders", bytes.NewReader([]byte(`{bad`)))
	rec = httptest.NewRecorder()
	h.CreateOrder(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRenewOrderHandlerTriState(t *testing.T) {
	tests := []struct {
		name       string
		res        renewal.Result
		wantStatus int
		wantKind   string
	}{
		{
			name:       "renewed",
			res:        renewal.Result{Kind: renewal.KindRenewal, Order: &models.RenewedOrder{Code: "MAVL1"}},
			wantStatus: http.StatusOK,
			wantKind:   "renewal",
		},
		{
			name:       "skipped",
			res:        renewal.Result{Kind: renewal.KindSkipped, Reason: "còn 10 ngày"},
			wantStatus: http.StatusOK,
			wantKind:   "skipped",
		},
		{
			name:       "error",
			res:        renewal.Result{Kind: renewal.KindError, Reason: "order not found"},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAdminHandlers(t, &stubOrders{}, &stubRenewer{res: tt.res}, &stubSupply{})

			req := mux.SetURLVars(
				httptest.NewRequest(http.MethodPost, "/admin/orders/MAVL1/renew", nil),
				map[string]string{"code": "MAVL1"})
			rec := httptest.NewRecorder()
			h.RenewOrder(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", body["kind"], tt.wantKind)
			}
		})
	}
}

func TestMarkSupplyPaidHandler(t *testing.T) {
	h := newAdminHandlers(t, &stubOrders{}, &stubRenewer{}, &stubSupply{
		settled: &supply.Settlement{
			Round:        &models.SupplyPayment{ID: 3, Status: "paid", PaidAmount: 170000},
			SettledIDs:   []int64{11, 12},
			SettledTotal: 170000,
		},
	})

	req := mux.SetURLVars(
		httptest.NewRequest(http.MethodPost, "/admin/supply/3/paid",
			bytes.NewReader([]byte(`{"paid_amount":170000}`))),
		map[string]string{"id": "3"})
	rec := httptest.NewRecorder()
	h.MarkSupplyPaid(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = mux.SetURLVars(
		httptest.NewRequest(http.MethodPost, "/admin/supply/3/paid",
			bytes.NewReader([]byte(`{"paid_amount":0}`))),
		map[string]string{"id": "3"})
	rec = httptest.NewRecorder()
	h.MarkSupplyPaid(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero amount status = %d, want 422", rec.Code)
	}
}
