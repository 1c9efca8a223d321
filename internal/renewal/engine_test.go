package renewal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mavrykpremium/orderbot/internal/db"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/pricing"
)

type stubOrders struct {
	orders  map[string]*models.Order
	renewed []db.RenewParams
}

func (s *stubOrders) GetByCode(_ context.Context, code string) (*models.Order, error) {
	for k, o := range s.orders {
		if strings.EqualFold(k, code) {
			copied := *o
			return &copied, nil
		}
	}
	return nil, db.ErrOrderNotFound
}

func (s *stubOrders) Renew(_ context.Context, p db.RenewParams) error {
	s.renewed = append(s.renewed, p)
	for k, o := range s.orders {
		if strings.EqualFold(k, p.Code) {
			o.RegisteredOn = p.RegisteredOn
			o.DurationDays = p.DurationDays
			o.ExpiresOn = p.ExpiresOn
			o.ImportPrice = p.ImportPrice
			o.SalePrice = p.SalePrice
			o.Status = p.Status
			o.Checked = p.Checked
			s.orders[k] = o
		}
	}
	return nil
}

type stubPrices struct {
	profiles  map[string]*models.PriceProfile
	highest   map[int64]decimal.Decimal
	supply    map[string]int64
	suppliers map[string]int64
	resolved  []string
}

func (s *stubPrices) ResolveProduct(_ context.Context, name string) (*models.PriceProfile, error) {
	s.resolved = append(s.resolved, name)
	for k, p := range s.profiles {
		if strings.EqualFold(k, name) {
			return p, nil
		}
	}
	return nil, db.ErrProductNotFound
}

func (s *stubPrices) HighestSupplyPrice(_ context.Context, productID int64) (decimal.Decimal, error) {
	return s.highest[productID], nil
}

func (s *stubPrices) SupplyPriceFor(_ context.Context, productID, sourceID int64) (int64, error) {
	p, ok := s.supply[fmt.Sprintf("%d/%d", productID, sourceID)]
	if !ok {
		return 0, db.ErrNoSupplyPrice
	}
	return p, nil
}

func (s *stubPrices) SupplierIDByName(_ context.Context, name string) (int64, error) {
	id, ok := s.suppliers[strings.ToLower(name)]
	if !ok {
		return 0, db.ErrSupplierNotFound
	}
	return id, nil
}

var testNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func newTestEngine(orders *stubOrders, prices *stubPrices) *Engine {
	e := NewEngine(orders, prices, DefaultDueDays, slog.New(slog.DiscardHandler))
	e.now = func() time.Time { return testNow }
	return e
}

func dbDate(t time.Time) string { return t.Format(pricing.DBDate) }

func TestRenewByCodeDueOrder(t *testing.T) {
	expiry := testNow.AddDate(0, 0, 4)
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVL1234567": {
			ID:          1,
			Code:        "MAVL1234567",
			Product:     "Netflix--1m",
			ExpiresOn:   dbDate(expiry),
			Source:      "@supplierA",
			ImportPrice: 80000,
			Status:      models.StatusNeedsRenewal,
		},
	}}
	prices := &stubPrices{
		profiles: map[string]*models.PriceProfile{
			"Netflix--1m": {ProductID: 7, CollabPct: decimal.NewFromFloat(1.2), CustomerPct: decimal.NewFromFloat(1.1)},
		},
		highest:   map[int64]decimal.Decimal{7: decimal.NewFromInt(100000)},
		supply:    map[string]int64{"7/3": 85000},
		suppliers: map[string]int64{"suppliera": 3},
	}

	res := newTestEngine(orders, prices).RenewByCode(context.Background(), "mavl1234567")
	if res.Kind != KindRenewal {
		t.Fatalf("kind = %s (reason %q, err %v), want renewal", res.Kind, res.Reason, res.Err)
	}

	if len(orders.renewed) != 1 {
		t.Fatalf("renew calls = %d, want 1", len(orders.renewed))
	}
	p := orders.renewed[0]

	wantStart := expiry.AddDate(0, 0, 1)
	wantExpiry := wantStart.AddDate(0, 0, 30)
	if p.RegisteredOn != dbDate(wantStart) {
		t.Errorf("registered on = %s, want %s", p.RegisteredOn, dbDate(wantStart))
	}
	if p.ExpiresOn != dbDate(wantExpiry) {
		t.Errorf("expires on = %s, want %s", p.ExpiresOn, dbDate(wantExpiry))
	}
	if p.DurationDays != 30 {
		t.Errorf("duration days = %d, want 30", p.DurationDays)
	}
	// 100000 * 1.2 * 1.1 = 132000, already a whole thousand.
	if p.SalePrice != 132000 {
		t.Errorf("sale price = %d, want 132000", p.SalePrice)
	}
	if p.ImportPrice != 85000 {
		t.Errorf("import price = %d, want supplier quote 85000", p.ImportPrice)
	}
	if p.Status != models.StatusUnpaid {
		t.Errorf("status = %s, want %s", p.Status, models.StatusUnpaid)
	}
	if p.Checked {
		t.Error("checked flag should reset to false")
	}

	if res.Order.ExpiresOn != wantExpiry.Format(pricing.DisplayDate) {
		t.Errorf("notification expiry = %s, want display format %s",
			res.Order.ExpiresOn, wantExpiry.Format(pricing.DisplayDate))
	}
}

func TestRenewByCodeResolvesFullProductName(t *testing.T) {
	// product_price.san_pham carries the duration suffix, so the lookup
	// must use the product string verbatim or it misses the profile and
	// quietly collapses to sale = import.
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVL8888888": {
			Code:        "MAVL8888888",
			Product:     "Netflix--1m",
			ExpiresOn:   dbDate(testNow),
			ImportPrice: 80000,
		},
	}}
	prices := &stubPrices{
		profiles: map[string]*models.PriceProfile{
			"Netflix--1m": {ProductID: 7, CollabPct: decimal.NewFromFloat(1.2), CustomerPct: decimal.NewFromFloat(1.1)},
		},
		highest: map[int64]decimal.Decimal{7: decimal.NewFromInt(100000)},
	}

	res := newTestEngine(orders, prices).RenewByCode(context.Background(), "MAVL8888888")
	if res.Kind != KindRenewal {
		t.Fatalf("kind = %s, want renewal", res.Kind)
	}
	if len(prices.resolved) != 1 || prices.resolved[0] != "Netflix--1m" {
		t.Fatalf("profile lookup used %v, want the full product name", prices.resolved)
	}
	if got := orders.renewed[0].SalePrice; got != 132000 {
		t.Errorf("sale price = %d, want tiered 132000, not the import fallback", got)
	}
}

func TestRenewByCodeNotDueYet(t *testing.T) {
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVC0000001": {
			Code:      "MAVC0000001",
			Product:   "Spotify--3m",
			ExpiresOn: dbDate(testNow.AddDate(0, 0, 5)),
		},
	}}

	res := newTestEngine(orders, &stubPrices{}).RenewByCode(context.Background(), "MAVC0000001")
	if res.Kind != KindSkipped {
		t.Fatalf("kind = %s, want skipped", res.Kind)
	}
	if len(orders.renewed) != 0 {
		t.Fatal("skipped order must not be written")
	}
	if !strings.Contains(res.Reason, "5") {
		t.Errorf("reason %q should carry the remaining days", res.Reason)
	}
}

func TestRenewByCodeIdempotent(t *testing.T) {
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVK7777777": {
			Code:        "MAVK7777777",
			Product:     "Youtube--1m",
			ExpiresOn:   dbDate(testNow),
			ImportPrice: 45000,
		},
	}}
	e := newTestEngine(orders, &stubPrices{})

	first := e.RenewByCode(context.Background(), "MAVK7777777")
	if first.Kind != KindRenewal {
		t.Fatalf("first pass kind = %s, want renewal", first.Kind)
	}

	// The order now expires ~31 days out, so a replayed payment for the
	// same code must come back as a skip, not a second period.
	second := e.RenewByCode(context.Background(), "MAVK7777777")
	if second.Kind != KindSkipped {
		t.Fatalf("second pass kind = %s, want skipped", second.Kind)
	}
	if len(orders.renewed) != 1 {
		t.Fatalf("renew calls = %d, want 1", len(orders.renewed))
	}
}

func TestRenewByCodePromoKeepsImportPrice(t *testing.T) {
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVK2222222": {
			Code:        "MAVK2222222",
			Product:     "Canva--12m",
			ExpiresOn:   dbDate(testNow.AddDate(0, 0, 2)),
			ImportPrice: 90500,
		},
	}}
	prices := &stubPrices{
		profiles: map[string]*models.PriceProfile{
			"Canva--12m": {ProductID: 2, CollabPct: decimal.NewFromFloat(1.5), CustomerPct: decimal.NewFromFloat(1.5)},
		},
		highest: map[int64]decimal.Decimal{2: decimal.NewFromInt(200000)},
	}

	res := newTestEngine(orders, prices).RenewByCode(context.Background(), "MAVK2222222")
	if res.Kind != KindRenewal {
		t.Fatalf("kind = %s, want renewal", res.Kind)
	}
	p := orders.renewed[0]
	if p.SalePrice != 91000 {
		t.Errorf("promo sale price = %d, want import rounded up to 91000", p.SalePrice)
	}
	if p.DurationDays != 365 {
		t.Errorf("duration days = %d, want 365 for a 12 month code", p.DurationDays)
	}
}

func TestRenewByCodeErrors(t *testing.T) {
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVL0000002": {Code: "MAVL0000002", Product: "Netflix--1m", ExpiresOn: "not a date"},
		"MAVL0000003": {Code: "MAVL0000003", Product: "Netflix plain", ExpiresOn: dbDate(testNow)},
	}}
	e := newTestEngine(orders, &stubPrices{})

	tests := []struct {
		name string
		code string
	}{
		{name: "unknown code", code: "MAVL9999999"},
		{name: "unparseable expiry", code: "MAVL0000002"},
		{name: "no duration suffix", code: "MAVL0000003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.RenewByCode(context.Background(), tt.code)
			if res.Kind != KindError {
				t.Fatalf("kind = %s, want error", res.Kind)
			}
			if res.Err == nil || res.Reason == "" {
				t.Error("error result must carry both a reason and an error")
			}
		})
	}
	if len(orders.renewed) != 0 {
		t.Fatal("no error path may write the order")
	}
}

func TestRenewByCodeFallbackWithoutProfile(t *testing.T) {
	orders := &stubOrders{orders: map[string]*models.Order{
		"MAVC5555555": {
			Code:        "MAVC5555555",
			Product:     "Obscure--1m",
			ExpiresOn:   dbDate(testNow.AddDate(0, 0, -3)),
			ImportPrice: 61000,
		},
	}}

	res := newTestEngine(orders, &stubPrices{}).RenewByCode(context.Background(), "MAVC5555555")
	if res.Kind != KindRenewal {
		t.Fatalf("kind = %s, want renewal", res.Kind)
	}
	if got := orders.renewed[0].SalePrice; got != 61000 {
		t.Errorf("fallback sale price = %d, want previous import 61000", got)
	}
}
