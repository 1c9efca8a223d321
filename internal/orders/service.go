// Package orders creates and manually extends orders. Renewal driven by
// payments lives in the renewal package; this one covers the operator flows.
package orders

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

var (
	ErrNoDuration  = errors.New("product code carries no duration suffix")
	ErrEmptyFields = errors.New("product and source are required")
)

// Store is the order persistence the service needs.
type Store interface {
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Renew(ctx context.Context, p db.RenewParams) error
}

// PriceSource mirrors the renewal engine's view of the price tables.
type PriceSource interface {
	ResolveProduct(ctx context.Context, productName string) (*models.PriceProfile, error)
	HighestSupplyPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
	SupplyPriceFor(ctx context.Context, productID, sourceID int64) (int64, error)
	SupplierIDByName(ctx context.Context, sourceName string) (int64, error)
}

// Notifier announces new orders to the operator chat. Nil disables it.
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
}

type Service struct {
	store    Store
	prices   PriceSource
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, prices PriceSource, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, prices: prices, notifier: notifier, logger: logger, now: time.Now}
}

// CreateParams is the operator's input for a new order. ImportPrice and
// SalePrice are raw typed amounts ("150k", "1.250.000"); TierPrefix picks
// the order code family and with it the pricing tier. DurationDays and
// SalePrice cover products whose code carries no duration suffix or whose
// price is negotiated per order.
type CreateParams struct {
	TierPrefix   string `json:"tier_prefix"`
	Product      string `json:"product"`
	Description  string `json:"description"`
	CustomerName string `json:"customer_name"`
	CustomerLink string `json:"customer_link"`
	Slot         string `json:"slot"`
	Source       string `json:"source"`
	ImportPrice  string `json:"import_price"`
	DurationDays int    `json:"duration_days"`
	SalePrice    string `json:"sale_price"`
	Note         string `json:"note"`
}

// Create registers a new order: generates its code, prices it by tier, and
// stamps a calendar expiry starting today.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Order, error) {
	log := logging.FromContext(ctx, s.logger)

	product := strings.TrimSpace(p.Product)
	if product == "" || strings.TrimSpace(p.Source) == "" {
		return nil, ErrEmptyFields
	}
	manualSale := strings.TrimSpace(p.SalePrice)
	days, ok := pricing.ParseDurationDays(product)
	if !ok {
		// No suffix is fine when the operator supplied the detail
		// out of band; the duration soft-defaults to zero.
		if p.DurationDays <= 0 && manualSale == "" {
			return nil, fmt.Errorf("%w: %q", ErrNoDuration, product)
		}
		days = p.DurationDays
		if days < 0 {
			days = 0
		}
	}

	code, err := GenerateCode(strings.ToUpper(strings.TrimSpace(p.TierPrefix)))
	if err != nil {
		return nil, err
	}

	importPrice := pricing.NormalizeAmount(p.ImportPrice)
	quote := s.quote(ctx, log, code, product, p.Source, &importPrice)

	salePrice := quote.SalePrice
	if manualSale != "" {
		salePrice = pricing.RoundUpToThousand(pricing.NormalizeAmount(manualSale))
	}

	today := dateOnly(s.now())
	order := &models.Order{
		Code:         code,
		Product:      product,
		Description:  strings.TrimSpace(p.Description),
		CustomerName: strings.TrimSpace(p.CustomerName),
		CustomerLink: strings.TrimSpace(p.CustomerLink),
		Slot:         strings.TrimSpace(p.Slot),
		RegisteredOn: today.Format(pricing.DBDate),
		DurationDays: days,
		ExpiresOn:    pricing.CalendarExpiry(today, days).Format(pricing.DBDate),
		Source:       strings.TrimSpace(p.Source),
		ImportPrice:  pricing.RoundUpToThousand(importPrice),
		SalePrice:    salePrice,
		Note:         strings.TrimSpace(p.Note),
		Status:       models.StatusUnpaid,
	}
	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("creating order %s: %w", code, err)
	}

	log.Info("order created",
		slog.String("order_code", code),
		slog.String("expires_on", order.ExpiresOn),
		slog.Int64("sale_price", order.SalePrice))

	if s.notifier != nil {
		if err := s.notifier.OrderCreated(ctx, order); err != nil {
			log.Error("order notification failed", slog.Any("error", err))
		}
	}
	return order, nil
}

// Extend pushes an order's expiry one more period out, regardless of how far
// away the current expiry is. The operator flow has no due-window gate; that
// gate belongs to payment-driven renewal only.
func (s *Service) Extend(ctx context.Context, code string) (*models.RenewedOrder, error) {
	log := logging.FromContext(ctx, s.logger)

	order, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	days, ok := pricing.ParseDurationDays(order.Product)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDuration, order.Product)
	}
	oldExpiry, err := pricing.ParseDate(order.ExpiresOn)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", order.Code, err)
	}

	importPrice := order.ImportPrice
	quote := s.quote(ctx, log, order.Code, order.Product, order.Source, &importPrice)

	start := pricing.RenewalStart(oldExpiry)
	newExpiry := pricing.CalendarExpiry(start, days)

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
	if err := s.store.Renew(ctx, params); err != nil {
		return nil, fmt.Errorf("extending order %s: %w", order.Code, err)
	}

	log.Info("order extended",
		slog.String("order_code", order.Code),
		slog.String("expires_on", params.ExpiresOn))

	return &models.RenewedOrder{
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
	}, nil
}

// quote resolves the price profile and derives a sale price. importPrice is
// replaced in place when the order's own supplier has a quote on file.
func (s *Service) quote(ctx context.Context, log *slog.Logger, code, product, source string, importPrice *int64) pricing.Quote {
	highest := decimal.Zero
	collabPct := decimal.Zero
	customerPct := decimal.Zero

	profile, err := s.prices.ResolveProduct(ctx, product)
	switch {
	case errors.Is(err, db.ErrProductNotFound):
		log.Warn("product has no price profile", slog.String("product", product))
	case err != nil:
		log.Error("price profile lookup failed", slog.Any("error", err))
	default:
		collabPct = profile.CollabPct
		customerPct = profile.CustomerPct
		if h, err := s.prices.HighestSupplyPrice(ctx, profile.ProductID); err == nil {
			highest = h
		} else {
			log.Error("highest supply price lookup failed", slog.Any("error", err))
		}
		if name := strings.TrimPrefix(strings.TrimSpace(source), "@"); name != "" {
			if sourceID, err := s.prices.SupplierIDByName(ctx, name); err == nil {
				if p, err := s.prices.SupplyPriceFor(ctx, profile.ProductID, sourceID); err == nil {
					*importPrice = p
				}
			}
		}
	}

	return pricing.ComputeSalePrice(pricing.PriceInputs{
		OrderCode:     code,
		ImportPrice:   *importPrice,
		HighestSupply: highest,
		CollabPct:     collabPct,
		CustomerPct:   customerPct,
	})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
