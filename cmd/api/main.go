package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/mfortin/barbooks/internal/config"
	"github.com/mfortin/barbooks/internal/events"
	"github.com/mfortin/barbooks/internal/events/kafka"
	"github.com/mfortin/barbooks/internal/handler"
	"github.com/mfortin/barbooks/internal/logging"
	"github.com/mfortin/barbooks/internal/middleware"
	"github.com/mfortin/barbooks/internal/repository"
	"github.com/mfortin/barbooks/internal/service/billing"
	"github.com/mfortin/barbooks/internal/service/trust"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("barbooks-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		slog.Info("event publisher enabled", "topic", cfg.KafkaTopic)
	}

	firms := repository.NewFirmRepository(db)
	clients := repository.NewClientRepository(db)
	matters := repository.NewMatterRepository(db)
	accounts := repository.NewTrustAccountRepository(db)
	trustTxns := repository.NewTrustTransactionRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	invoiceLines := repository.NewInvoiceLineRepository(db)
	payments := repository.NewPaymentRepository(db)
	timeEntries := repository.NewTimeEntryRepository(db)
	expenses := repository.NewExpenseRepository(db)

	trustSvc := trust.NewService(firms, clients, matters, accounts, trustTxns, db, publisher)
	billingSvc := billing.NewService(
		firms, clients, invoices, invoiceLines, payments, timeEntries, expenses,
		trustSvc, db, publisher,
		billing.Defaults{Province: cfg.DefaultProvince, DueDays: cfg.DefaultDueDays},
	)

	invoiceHandler := handler.NewInvoiceHandler(billingSvc)
	trustHandler := handler.NewTrustHandler(trustSvc, billingSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/invoices", invoiceHandler.Create)
	api.HandleFunc("GET /api/v1/invoices/next-number", invoiceHandler.NextNumber)
	api.HandleFunc("GET /api/v1/invoices/{id}", invoiceHandler.Get)
	api.HandleFunc("POST /api/v1/invoices/{id}/send", invoiceHandler.Send)
	api.HandleFunc("POST /api/v1/invoices/{id}/recalculate", invoiceHandler.Recalculate)
	api.HandleFunc("POST /api/v1/invoices/{id}/payments", invoiceHandler.RecordPayment)
	api.HandleFunc("GET /api/v1/invoices/{id}/payments", invoiceHandler.ListPayments)
	api.HandleFunc("POST /api/v1/trust-accounts", trustHandler.CreateAccount)
	api.HandleFunc("GET /api/v1/trust-accounts", trustHandler.ListAccounts)
	api.HandleFunc("GET /api/v1/trust-accounts/{id}/transactions", trustHandler.ListTransactions)
	api.HandleFunc("GET /api/v1/trust-accounts/{id}/clients/{client_id}/transactions", trustHandler.ClientStatement)
	api.HandleFunc("POST /api/v1/trust-accounts/{id}/deposits", trustHandler.RecordDeposit)
	api.HandleFunc("POST /api/v1/trust-accounts/{id}/refunds", trustHandler.RecordRefund)
	api.HandleFunc("POST /api/v1/trust-accounts/{id}/interest", trustHandler.RecordInterest)
	api.HandleFunc("POST /api/v1/trust-accounts/{id}/bank-charges", trustHandler.RecordBankCharge)
	api.HandleFunc("POST /api/v1/trust-accounts/{id}/transfers", trustHandler.TransferToFees)
	api.HandleFunc("GET /api/v1/trust-accounts/{id}/reconciliation", trustHandler.Reconciliation)
	api.HandleFunc("GET /api/v1/clients/{id}/trust-balance", trustHandler.ClientBalance)
	mux.Handle("/api/v1/", middleware.Auth(cfg.JWTSecret)(api))

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("failed to write health response", "error", err)
	}
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, connErr := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if connErr == nil {
			return db, nil
		}
		err = connErr
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
