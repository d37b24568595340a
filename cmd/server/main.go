package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/config"
	"invest-tracker-go/internal/fx"
	"invest-tracker-go/internal/logger"
	"invest-tracker-go/internal/marketdata"
	"invest-tracker-go/internal/portfolio"
	"invest-tracker-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Open the flat-file store
	st, err := store.New(afero.NewOsFs(), cfg.Storage.DataDir, log)
	if err != nil {
		log.Fatal("Failed to open data store", zap.Error(err))
	}
	log.Info("Data store ready", zap.String("dir", cfg.Storage.DataDir))

	// Wire the calculation engine and its collaborators. Everything is
	// constructed once here and injected; there are no package-level
	// singletons.
	resultCache := cache.New(time.Duration(cfg.Cache.DefaultTTLMinutes) * time.Minute)
	fxCache := cache.New(time.Duration(cfg.Cache.FXTTLMinutes) * time.Minute)
	fxProvider := fx.NewProvider(
		fx.NewClient(&cfg.FX, log),
		fxCache,
		time.Duration(cfg.Cache.FXTTLMinutes)*time.Minute,
		log,
	)
	quotes := marketdata.NewClient(&cfg.MarketData, log)
	svc := portfolio.NewService(st, quotes, fxProvider, resultCache, cfg.Analytics.RiskFreeRate, log)

	// Setup HTTP routes
	apiHandler := NewAPIHandler(log, svc)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", apiHandler.StatusHandler)
		r.Get("/dashboard", apiHandler.DashboardHandler)
		r.Get("/analytics", apiHandler.AnalyticsHandler)
		r.Post("/refresh", apiHandler.RefreshHandler)

		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", apiHandler.ListPortfoliosHandler)
			r.Post("/", apiHandler.CreatePortfolioHandler)
			r.Get("/{id}", apiHandler.GetPortfolioHandler)
			r.Delete("/{id}", apiHandler.DeletePortfolioHandler)
			r.Get("/{id}/holdings", apiHandler.HoldingsHandler)
			r.Get("/{id}/transactions", apiHandler.ListTransactionsHandler)
			r.Post("/{id}/transactions", apiHandler.AddTransactionHandler)
			r.Put("/{id}/cash", apiHandler.SetCashHandler)
		})
		r.Delete("/transactions/{id}", apiHandler.DeleteTransactionHandler)
	})

	// Static file serving for CSS, JS, etc.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// HTML template serving
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/templates/index.html")
	})

	// Periodic maintenance: sweep expired cache entries, and refresh
	// portfolio totals from fresh market data.
	scheduler := cron.New()
	_, _ = scheduler.AddFunc("@every 10m", func() {
		removed := resultCache.Cleanup() + fxCache.Cleanup()
		if removed > 0 {
			log.Debug("Swept expired cache entries", zap.Int("removed", removed))
		}
	})
	_, _ = scheduler.AddFunc("@every 30m", func() {
		if err := svc.RefreshAll(context.Background()); err != nil {
			log.Warn("Scheduled refresh failed", zap.Error(err))
		}
	})
	scheduler.Start()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")

		scheduler.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting web server", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Web server failed", zap.Error(err))
	}
	log.Info("Server has been shut down.")
}
