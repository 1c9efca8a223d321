// Package renewal decides whether an order gets a new period and, when it
// does, recomputes its dates and prices and writes them back in one update.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mavrykpremium/orderbot/internal/db"
	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/pricing"
)

// DefaultDueDays is the eligibility window: an order further than this many
// days from expiry is not renewed yet.
const DefaultDueDays = 4

// OrderStore is the slice of order persistence the engine needs.
type OrderStore interface {
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	Renew(ctx context.Context, p db.RenewParams) error
}

// PriceSource resolves product profiles and supplier quotes.
type PriceSource interface {
	ResolveProduct(ctx context.Context, productName string) (*models.PriceProfile, error)
	HighestSupplyPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
	SupplyPriceFor(ctx context.Context, productID, sourceID int64) (int64, error)
	SupplierIDByName(ctx context.Context, sourceName string) (int64, error)
}

type ResultKind string

const (
	KindRenewal ResultKind = "renewal"
	KindSkipped ResultKind = "skipped"
	KindError   ResultKind = "error"
)

// Result is the tri-state outcome of one renewal attempt. Exactly one of the
// kinds applies; Order is set only for KindRenewal.
type Result struct {
	Kind   ResultKind
	Order  *models.RenewedOrder
	Reason string
	Err    error
}

func (r Result) OK() bool { return r.Kind == KindRenewal }

type Engine struct {
	orders  OrderStore
	prices  PriceSource
	dueDays int
	now     func() time.Time
	logger  *slog.Logger
}

func NewEngine(orders OrderStore, prices PriceSource, dueDays int, logger *slog.Logger) *Engine {
	if dueDays <= 0 {
		dueDays = DefaultDueDays
	}
	return &Engine{
		orders:  orders,
		prices:  prices,
		dueDays: dueDays,
		now:     time.Now,
		logger:  logger,
	}
}

// RenewByCode runs the full pipeline for one order code: lookup, eligibility,
// price recomputation, persist. Every failure mode comes back as a Result so
// a payment covering several codes can report per-code outcomes.
func (e *Engine) RenewByCode(ctx context.Context, code string) Result {
	log := logging.FromContext(ctx, e.logger).With(slog.String("order_code", code))

	order, err := e.orders.GetByCode(ctx, code)
	if errors.Is(err, db.ErrOrderNotFound) {
		return Result{Kind: KindError, Reason: "order not found", Err: err}
	}
	if err != nil {
		return Result{Kind: KindError, Reason: "order lookup failed", Err: err}
	}

	oldExpiry, err := pricing.ParseDate(order.ExpiresOn)
	if err != nil {
		return Result{Kind: KindError, Reason: "order has no usable expiry date", Err: err}
	}

	daysLeft := daysUntil(e.now(), oldExpiry)
	if daysLeft > e.dueDays {
		log.Info("renewal skipped, not due yet", slog.Int("days_left", daysLeft))
		return Result{
			Kind:   KindSkipped,
			Reason: fmt.Sprintf("không cần gia hạn, còn %d ngày", daysLeft),
		}
	}

	days, ok := pricing.ParseDurationDays(order.Product)
	if !ok {
		return Result{
			Kind:   KindError,
			Reason: "product code has no duration suffix",
			Err:    fmt.Errorf("no duration in product %q", order.Product),
		}
	}

	importPrice, quote := e.recomputePrices(ctx, log, order)

	start := pricing.RenewalStart(oldExpiry)
	newExpiry := pricing.FlatExpiry(start, days)

	params := db.RenewParams{
		Code:         order.Code,
		RegisteredOn: start.Format(pricing.DBDate),
		DurationDays: days,
		ExpiresOn:    newExpiry.Format(pricing.DBDate),
		ImportPrice:  pricing.RoundUpToThousand(importPrice),
		SalePrice:    quote.SalePrice,
		Status:       models.StatusUnpaid,
		Checked:      false,
	}
	if err := e.orders.Renew(ctx, params); err != nil {
		return Result{Kind: KindError, Reason: "renewal update failed", Err: err}
	}

	log.Info("order renewed",
		slog.String("expires_on", params.ExpiresOn),
		slog.Int64("sale_price", params.SalePrice),
		slog.Bool("degraded_pricing", quote.Degraded))

	return Result{
		Kind: KindRenewal,
		Order: &models.RenewedOrder{
			Code:         order.Code,
			Product:      order.Product,
			Description:  order.Description,
			Slot:         order.Slot,
			RegisteredOn: start.Format(pricing.DisplayDate),
			ExpiresOn:    newExpiry.Format(pricing.DisplayDate),
			Source:       order.Source,
			ImportPrice:  params.ImportPrice,
			SalePrice:    params.SalePrice,
			Status:       string(models.StatusUnpaid),
		},
	}
}

// recomputePrices picks the new import price and derives the sale price. A
// missing product profile or supplier quote is not fatal: the engine falls
// back to the order's previous import price, and ComputeSalePrice marks the
// quote degraded where that matters.
func (e *Engine) recomputePrices(ctx context.Context, log *slog.Logger, order *models.Order) (int64, pricing.Quote) {
	importPrice := order.ImportPrice
	highest := decimal.Zero
	collabPct := decimal.Zero
	customerPct := decimal.Zero

	profile, err := e.prices.ResolveProduct(ctx, order.Product)
	switch {
	case errors.Is(err, db.ErrProductNotFound):
		log.Warn("product has no price profile, reusing previous import price",
			slog.String("product", order.Product))
	case err != nil:
		log.Error("price profile lookup failed", slog.Any("error", err))
	default:
		collabPct = profile.CollabPct
		customerPct = profile.CustomerPct

		if h, err := e.prices.HighestSupplyPrice(ctx, profile.ProductID); err != nil {
			log.Error("highest supply price lookup failed", slog.Any("error", err))
		} else {
			highest = h
		}

		if p, err := e.supplierQuote(ctx, profile.ProductID, order.Source); err == nil {
			importPrice = p
		}
	}

	quote := pricing.ComputeSalePrice(pricing.PriceInputs{
		OrderCode:     order.Code,
		ImportPrice:   importPrice,
		HighestSupply: highest,
		CollabPct:     collabPct,
		CustomerPct:   customerPct,
	})
	return importPrice, quote
}

func (e *Engine) supplierQuote(ctx context.Context, productID int64, source string) (int64, error) {
	name := strings.TrimPrefix(strings.TrimSpace(source), "@")
	if name == "" {
		return 0, db.ErrSupplierNotFound
	}
	sourceID, err := e.prices.SupplierIDByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return e.prices.SupplyPriceFor(ctx, productID, sourceID)
}

// daysUntil counts calendar days between two instants, ignoring clock time
// and zone so a late-evening webhook sees the same count as a morning one.
func daysUntil(now, expiry time.Time) int {
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}
