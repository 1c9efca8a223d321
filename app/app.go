package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mavrykpremium/orderbot/internal/cache"
	"github.com/mavrykpremium/orderbot/internal/config"
	"github.com/mavrykpremium/orderbot/internal/db"
	"github.com/mavrykpremium/orderbot/internal/dueorders"
	"github.com/mavrykpremium/orderbot/internal/handlers"
	"github.com/mavrykpremium/orderbot/internal/notify"
	"github.com/mavrykpremium/orderbot/internal/orders"
	"github.com/mavrykpremium/orderbot/internal/payments"
	"github.com/mavrykpremium/orderbot/internal/renewal"
	"github.com/mavrykpremium/orderbot/internal/supply"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
	Scanner       *dueorders.Scanner
	ScanInterval  time.Duration
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
	}

	scanInterval, err := time.ParseDuration(cfg.DueScanInterval)
	if err != nil || scanInterval <= 0 {
		return nil, fmt.Errorf("invalid DUE_SCAN_INTERVAL %q", cfg.DueScanInterval)
	}

	topics, err := notify.LoadTopics(cfg.TopicsFile)
	if err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	priceStore := db.NewPriceStore(database)
	receiptStore := db.NewReceiptStore(database)
	ledgerStore := db.NewSupplyLedgerStore(database, orderStore)

	telegram := notify.NewTelegram(cfg.TelegramBotToken, topics, logger.With("component", "telegram"))
	roster := supply.NewRoster(priceStore, cacheProvider, logger.With("component", "roster"))

	engine := renewal.NewEngine(orderStore, priceStore, cfg.RenewalDueDays,
		logger.With("component", "renewal"))
	processor := payments.NewProcessor(engine, receiptStore, roster, ledgerStore, telegram,
		logger.With("component", "payments"))
	orderService := orders.NewService(orderStore, priceStore, telegram,
		logger.With("component", "orders"))
	scanner := dueorders.NewScanner(orderStore, telegram, cfg.RenewalDueDays,
		logger.With("component", "dueorders"))
	supplyPayments := supply.NewPayments(ledgerStore, orderStore, priceStore, telegram,
		logger.With("component", "supply"))

	h, err := handlers.New(handlers.Dependencies{
		Config:    cfg,
		DB:        database,
		Orders:    orderService,
		Renewer:   engine,
		Processor: processor,
		Supply:    supplyPayments,
		Scanner:   scanner,
		DueList:   orderStore,
		Logger:    logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
		Scanner:       scanner,
		ScanInterval:  scanInterval,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
