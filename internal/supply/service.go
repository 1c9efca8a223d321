package supply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/models"
)

// Ledger is the payment_supply persistence the service drives.
type Ledger interface {
	ListPending(ctx context.Context) ([]models.PendingSupply, error)
	MarkPaid(ctx context.Context, roundID, paidAmount int64, now time.Time) (*models.SupplyPayment, error)
}

// OrderSettler flips a supplier's orders to paid once a round is settled.
type OrderSettler interface {
	UnpaidIDsForSource(ctx context.Context, sourceName string) ([]int64, int64, error)
	MarkPaidByIDs(ctx context.Context, ids []int64) error
}

// Settlement is the outcome of marking a round paid: the closed round plus
// the orders that were flipped to paid with it.
type Settlement struct {
	Round        *models.SupplyPayment `json:"round"`
	SettledIDs   []int64               `json:"settled_order_ids"`
	SettledTotal int64                 `json:"settled_total"`
	QRLink       string                `json:"qr_link,omitempty"`
}

// Notifier announces settled rounds to the operator chat. Nil disables it.
type Notifier interface {
	SettlementDone(ctx context.Context, res *Settlement, supplierName string) error
}

// Payments runs the supplier settlement flow.
type Payments struct {
	ledger   Ledger
	orders   OrderSettler
	roster   SupplierLister
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewPayments(ledger Ledger, orders OrderSettler, roster SupplierLister, notifier Notifier, logger *slog.Logger) *Payments {
	return &Payments{
		ledger:   ledger,
		orders:   orders,
		roster:   roster,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ListPending returns the open rounds with live unpaid-order totals and a
// payment QR link per supplier that has bank details on file.
func (p *Payments) ListPending(ctx context.Context) ([]models.PendingSupply, error) {
	return p.ledger.ListPending(ctx)
}

// MarkPaid settles one round: closes it in the ledger, then flips the
// supplier's unpaid orders to paid. The order flip failing after the round
// closed is reported, not rolled back; the ledger row is the source of truth.
func (p *Payments) MarkPaid(ctx context.Context, roundID, paidAmount int64) (*Settlement, error) {
	log := logging.FromContext(ctx, p.logger)

	round, err := p.ledger.MarkPaid(ctx, roundID, paidAmount, p.now())
	if err != nil {
		return nil, err
	}

	name, err := p.supplierName(ctx, round.SourceID)
	if err != nil {
		log.Error("supplier lookup after settlement failed", slog.Any("error", err))
		return &Settlement{Round: round}, nil
	}

	ids, total, err := p.orders.UnpaidIDsForSource(ctx, name)
	if err != nil {
		log.Error("unpaid order lookup after settlement failed",
			slog.String("supplier", name), slog.Any("error", err))
		return &Settlement{Round: round}, nil
	}
	if err := p.orders.MarkPaidByIDs(ctx, ids); err != nil {
		log.Error("order settlement flip failed",
			slog.String("supplier", name), slog.Any("error", err))
		return &Settlement{Round: round}, nil
	}

	log.Info("supply round settled",
		slog.Int64("round_id", round.ID),
		slog.String("supplier", name),
		slog.Int("orders", len(ids)),
		slog.Int64("total", total))

	res := &Settlement{Round: round, SettledIDs: ids, SettledTotal: total}
	if p.notifier != nil {
		if err := p.notifier.SettlementDone(ctx, res, name); err != nil {
			log.Error("settlement notification failed", slog.Any("error", err))
		}
	}
	return res, nil
}

func (p *Payments) supplierName(ctx context.Context, sourceID int64) (string, error) {
	roster, err := p.roster.ListSuppliers(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range roster {
		if s.ID == sourceID {
			if strings.TrimSpace(s.Name) == "" {
				break
			}
			return s.Name, nil
		}
	}
	return "", fmt.Errorf("supplier id %d has no usable name", sourceID)
}
