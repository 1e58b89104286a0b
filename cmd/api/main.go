package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookclose/bookclose/internal/config"
	"github.com/bookclose/bookclose/internal/handler"
	"github.com/bookclose/bookclose/internal/logging"
	"github.com/bookclose/bookclose/internal/middleware"
	"github.com/bookclose/bookclose/internal/repository"
	"github.com/bookclose/bookclose/internal/service"
	"github.com/bookclose/bookclose/internal/service/statement"
)

//go:embed openapi.yaml
var openAPISpec []byte

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("bookclose-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	statementRepo := repository.NewStatementRepository(db)

	accountSvc := service.NewAccountService(accountRepo)
	ledgerSvc := service.NewLedgerService(ledgerRepo, accountRepo)
	statementSvc := statement.NewService(accountRepo, ledgerRepo, statementRepo, cfg)

	accountHandler := handler.NewAccountHandler(accountSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	statementHandler := handler.NewStatementHandler(statementSvc)
	reportsHandler := handler.NewReportsHandler(statementSvc)
	healthHandler := handler.NewHealthHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.Tracing)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs", handler.ServeDocs())
	r.Get("/docs/openapi.yaml", handler.ServeSpec(openAPISpec))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.Create)
			r.Get("/", accountHandler.List)
			r.Get("/{code}", accountHandler.Get)
			r.Patch("/{code}", accountHandler.Update)
			r.Delete("/{code}", accountHandler.Deactivate)
			r.Get("/{code}/balance", reportsHandler.AccountBalance)
			r.Get("/{code}/entries", ledgerHandler.List)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", ledgerHandler.Post)
			r.Post("/batch", ledgerHandler.PostBatch)
			r.Post("/{id}/complete", ledgerHandler.Complete)
			r.Post("/{id}/void", ledgerHandler.Void)
		})

		r.Route("/statements", func(r chi.Router) {
			r.Post("/balance-sheet", statementHandler.GenerateBalanceSheet)
			r.Post("/profit-loss", statementHandler.GenerateProfitLoss)
			r.Get("/", statementHandler.List)
			r.Get("/{id}", statementHandler.Get)
			r.Delete("/{id}", statementHandler.Delete)
			r.Post("/{id}/status", statementHandler.Transition)
			r.Post("/{id}/regenerate", statementHandler.Regenerate)
			r.Get("/{id}/ratios", statementHandler.Ratios)
			r.Get("/number/{number}", statementHandler.GetByNumber)
			r.Get("/number/{number}/versions", statementHandler.Versions)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/trial-balance", reportsHandler.TrialBalance)
			r.Get("/close-validation", reportsHandler.ValidateClose)
			r.Get("/equation", reportsHandler.ValidateEquation)
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
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

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		db, err = repository.NewPostgresDB(context.Background(), cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
