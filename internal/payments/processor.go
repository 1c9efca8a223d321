package payments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/renewal"
)

// Notification is one incoming bank transfer event as delivered by the
// payment gateway webhook.
type Notification struct {
	ID              int64  `json:"id"`
	Gateway         string `json:"gateway"`
	TransactionDate string `json:"transactionDate"`
	AccountNumber   string `json:"accountNumber"`
	Content         string `json:"content"`
	TransferType    string `json:"transferType"`
	TransferAmount  int64  `json:"transferAmount"`
	ReferenceCode   string `json:"referenceCode"`
	Description     string `json:"description"`
}

// Renewer is the per-code renewal pipeline.
type Renewer interface {
	RenewByCode(ctx context.Context, code string) renewal.Result
}

// ReceiptSink records raw notifications for audit.
type ReceiptSink interface {
	Insert(ctx context.Context, r models.Receipt) error
}

// RosterSource lists suppliers for transfer attribution.
type RosterSource interface {
	Suppliers(ctx context.Context) ([]models.Supplier, error)
}

// SupplyLedger accumulates amounts owed to suppliers.
type SupplyLedger interface {
	TopUpImport(ctx context.Context, sourceID, amount int64, now time.Time) error
}

// Notifier reports outcomes to the operator chat. Delivery failures are the
// notifier's problem; the processor only logs them.
type Notifier interface {
	RenewalSucceeded(ctx context.Context, order *models.RenewedOrder, amount int64) error
	RenewalSkipped(ctx context.Context, code, reason string) error
	RenewalFailed(ctx context.Context, code, reason string) error
	SupplierTopUp(ctx context.Context, supplier models.Supplier, amount int64) error
}

// Processor handles one webhook notification end to end: audit receipt,
// renewal per matched order code, and supplier ledger attribution.
type Processor struct {
	renewer  Renewer
	receipts ReceiptSink
	roster   RosterSource
	ledger   SupplyLedger
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewProcessor(renewer Renewer, receipts ReceiptSink, roster RosterSource, ledger SupplyLedger, notifier Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		renewer:  renewer,
		receipts: receipts,
		roster:   roster,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Process runs the pipeline for one notification. It never returns an error:
// the webhook was already acknowledged, so every failure is logged and
// reported to Sentry instead of bubbling up.
func (p *Processor) Process(ctx context.Context, n Notification) {
	log := logging.FromContext(ctx, p.logger)

	codes := ExtractOrderCodes(n.Content)
	p.recordReceipt(ctx, log, n, codes)

	for _, code := range codes {
		res := p.renewer.RenewByCode(ctx, code)
		p.report(ctx, log, code, n.TransferAmount, res)
	}

	p.attributeSupplier(ctx, log, n)

	if len(codes) == 0 {
		log.Info("notification carried no order codes",
			slog.String("content", n.Content))
	}
}

// Gateways disagree on the transaction date format, so a few layouts are
// tried before giving up and stamping the arrival time.
var transactionDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

func (p *Processor) recordReceipt(ctx context.Context, log *slog.Logger, n Notification, codes []string) {
	paidOn := p.now()
	for _, layout := range transactionDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(n.TransactionDate)); err == nil {
			paidOn = t
			break
		}
	}
	receipt := models.Receipt{
		OrderCodes:  joinCodes(codes),
		PaidOn:      paidOn,
		Amount:      n.TransferAmount,
		Sender:      strings.TrimSpace(n.AccountNumber),
		Description: n.Content,
	}
	if err := p.receipts.Insert(ctx, receipt); err != nil {
		// The receipt is an audit trail, not a gate: renewals proceed.
		log.Error("payment receipt insert failed", slog.Any("error", err))
		sentry.CaptureException(err)
	}
}

func (p *Processor) report(ctx context.Context, log *slog.Logger, code string, amount int64, res renewal.Result) {
	var err error
	switch res.Kind {
	case renewal.KindRenewal:
		err = p.notifier.RenewalSucceeded(ctx, res.Order, amount)
	case renewal.KindSkipped:
		err = p.notifier.RenewalSkipped(ctx, code, res.Reason)
	case renewal.KindError:
		log.Error("renewal failed",
			slog.String("order_code", code),
			slog.String("reason", res.Reason),
			slog.Any("error", res.Err))
		if res.Err != nil {
			sentry.CaptureException(res.Err)
		}
		err = p.notifier.RenewalFailed(ctx, code, res.Reason)
	}
	if err != nil {
		log.Error("renewal notification failed",
			slog.String("order_code", code), slog.Any("error", err))
	}
}

func (p *Processor) attributeSupplier(ctx context.Context, log *slog.Logger, n Notification) {
	roster, err := p.roster.Suppliers(ctx)
	if err != nil {
		log.Error("supplier roster load failed", slog.Any("error", err))
		sentry.CaptureException(err)
		return
	}
	supplier, ok := FindSupplier(n.Content, roster)
	if !ok {
		return
	}
	if err := p.ledger.TopUpImport(ctx, supplier.ID, n.TransferAmount, p.now()); err != nil {
		log.Error("supplier ledger top up failed",
			slog.String("supplier", supplier.Name), slog.Any("error", err))
		sentry.CaptureException(err)
		return
	}
	log.Info("supplier transfer attributed",
		slog.String("supplier", supplier.Name),
		slog.Int64("amount", n.TransferAmount))
	if err := p.notifier.SupplierTopUp(ctx, supplier, n.TransferAmount); err != nil {
		log.Error("supplier notification failed", slog.Any("error", err))
	}
}

func joinCodes(codes []string) string {
	return strings.Join(codes, " - ")
}
