// Package dueorders finds paid orders whose expiry is inside the renewal
// window, flags them in the database and reminds the operator chat.
package dueorders

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/pricing"
)

// DueOrder is one reminder entry with display-format dates.
type DueOrder struct {
	Code      string `json:"code"`
	Product   string `json:"product"`
	Customer  string `json:"customer"`
	ExpiresOn string `json:"expires_on"`
	DaysLeft  int    `json:"days_left"`
	SalePrice int64  `json:"sale_price"`
}

// OrderSource is the slice of order persistence the scanner needs.
type OrderSource interface {
	ActivePaid(ctx context.Context) ([]*models.Order, error)
	MarkNeedsRenewal(ctx context.Context, codes []string) error
}

// Notifier delivers the daily reminder.
type Notifier interface {
	DueOrders(ctx context.Context, due []DueOrder) error
}

type Scanner struct {
	orders   OrderSource
	notifier Notifier
	dueDays  int
	logger   *slog.Logger
	now      func() time.Time
}

func NewScanner(orders OrderSource, notifier Notifier, dueDays int, logger *slog.Logger) *Scanner {
	return &Scanner{
		orders:   orders,
		notifier: notifier,
		dueDays:  dueDays,
		logger:   logger,
		now:      time.Now,
	}
}

// Scan walks every paid order, picks those expiring within the due window,
// flags them and sends one reminder. Orders with unparseable expiry dates
// are logged and skipped, never treated as due.
func (s *Scanner) Scan(ctx context.Context) ([]DueOrder, error) {
	log := logging.FromContext(ctx, s.logger)

	orders, err := s.orders.ActivePaid(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		due   []DueOrder
		codes []string
	)
	for _, o := range orders {
		expiry, err := pricing.ParseDate(o.ExpiresOn)
		if err != nil {
			log.Warn("order has unparseable expiry, skipping",
				slog.String("order_code", o.Code),
				slog.String("expires_on", o.ExpiresOn))
			continue
		}
		daysLeft := daysUntil(now, expiry)
		if daysLeft > s.dueDays {
			continue
		}
		due = append(due, DueOrder{
			Code:      o.Code,
			Product:   o.Product,
			Customer:  o.CustomerName,
			ExpiresOn: expiry.Format(pricing.DisplayDate),
			DaysLeft:  daysLeft,
			SalePrice: o.SalePrice,
		})
		codes = append(codes, o.Code)
	}

	if len(due) == 0 {
		log.Info("no orders due for renewal")
		return nil, nil
	}

	if err := s.orders.MarkNeedsRenewal(ctx, codes); err != nil {
		return nil, err
	}
	log.Info("orders flagged for renewal", slog.Int("count", len(due)))

	if err := s.notifier.DueOrders(ctx, due); err != nil {
		log.Error("due order reminder failed", slog.Any("error", err))
		sentry.CaptureException(err)
	}
	return due, nil
}

// Run executes Scan on an interval until the context ends. One failed pass
// is reported and the loop keeps going.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx, s.logger)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil {
				log.Error("due order scan failed", slog.Any("error", err))
				sentry.CaptureException(err)
			}
		}
	}
}

func daysUntil(now, expiry time.Time) int {
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}
