package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mavrykpremium/orderbot/internal/config"
	"github.com/mavrykpremium/orderbot/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.HandleFunc("/healthz", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/webhook/payment", h.PaymentWebhook).Methods("POST").Name("webhooks.payment")

	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireAdmin)
	adminRouter.HandleFunc("/orders", h.CreateOrder).Methods("POST").Name("admin.orders.create")
	adminRouter.HandleFunc("/orders/{code}/extend", h.ExtendOrder).Methods("POST").Name("admin.orders.extend")
	adminRouter.HandleFunc("/orders/{code}/renew", h.RenewOrder).Methods("POST").Name("admin.orders.renew")
	adminRouter.HandleFunc("/orders/due", h.ListDueOrders).Methods("GET").Name("admin.orders.due")
	adminRouter.HandleFunc("/orders/due/scan", h.ScanDueOrders).Methods("POST").Name("admin.orders.due.scan")
	adminRouter.HandleFunc("/supply/pending", h.PendingSupply).Methods("GET").Name("admin.supply.pending")
	adminRouter.HandleFunc("/supply/{id}/paid", h.MarkSupplyPaid).Methods("POST").Name("admin.supply.paid")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
