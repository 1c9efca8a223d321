package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mavrykpremium/orderbot/internal/config"
	"github.com/mavrykpremium/orderbot/internal/dueorders"
	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/models"
	"github.com/mavrykpremium/orderbot/internal/orders"
	"github.com/mavrykpremium/orderbot/internal/payments"
	"github.com/mavrykpremium/orderbot/internal/supply"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

// OrderService is the operator order flow.
type OrderService interface {
	Create(ctx context.Context, p orders.CreateParams) (*models.Order, error)
	Extend(ctx context.Context, code string) (*models.RenewedOrder, error)
}

// WebhookProcessor consumes one acknowledged payment notification.
type WebhookProcessor interface {
	Process(ctx context.Context, n payments.Notification)
}

// Renewer runs the payment-driven renewal pipeline for one code.
type Renewer = payments.Renewer

// SupplyPayments is the supplier settlement flow.
type SupplyPayments interface {
	ListPending(ctx context.Context) ([]models.PendingSupply, error)
	MarkPaid(ctx context.Context, roundID, paidAmount int64) (*supply.Settlement, error)
}

// DueScanner runs one due-order pass on demand.
type DueScanner interface {
	Scan(ctx context.Context) ([]dueorders.DueOrder, error)
}

// DueLister reads back orders already flagged as needing renewal.
type DueLister interface {
	DueForRenewal(ctx context.Context, limit int) ([]*models.Order, error)
}

// Handlers provides the HTTP surface: the payment webhook and the admin API.
type Handlers struct {
	config    *config.Config
	db        *pgxpool.Pool
	orders    OrderService
	renewer   Renewer
	processor WebhookProcessor
	supply    SupplyPayments
	scanner   DueScanner
	dueList   DueLister
	logger    *slog.Logger
}

type Dependencies struct {
	Config    *config.Config
	DB        *pgxpool.Pool
	Orders    OrderService
	Renewer   Renewer
	Processor WebhookProcessor
	Supply    SupplyPayments
	Scanner   DueScanner
	DueList   DueLister
	Logger    *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("handlers dependencies: orders is required")
	}
	if deps.Renewer == nil {
		return nil, fmt.Errorf("handlers dependencies: renewer is required")
	}
	if deps.Processor == nil {
		return nil, fmt.Errorf("handlers dependencies: processor is required")
	}
	if deps.Supply == nil {
		return nil, fmt.Errorf("handlers dependencies: supply is required")
	}
	if deps.Scanner == nil {
		return nil, fmt.Errorf("handlers dependencies: scanner is required")
	}
	if deps.DueList == nil {
		return nil, fmt.Errorf("handlers dependencies: dueList is required")
	}

	return &Handlers{
		config:    deps.Config,
		db:        deps.DB,
		orders:    deps.Orders,
		renewer:   deps.Renewer,
		processor: deps.Processor,
		supply:    deps.Supply,
		scanner:   deps.Scanner,
		dueList:   deps.DueList,
		logger:    logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
