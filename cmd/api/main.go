package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commercelab/mollie-sync/internal/api"
	"github.com/commercelab/mollie-sync/internal/auth"
	"github.com/commercelab/mollie-sync/internal/config"
	"github.com/commercelab/mollie-sync/internal/db"
	"github.com/commercelab/mollie-sync/internal/logger"
	"github.com/commercelab/mollie-sync/internal/metrics"
	"github.com/commercelab/mollie-sync/internal/mollie"
	"github.com/commercelab/mollie-sync/internal/repository/postgres"
	"github.com/commercelab/mollie-sync/internal/services"
	"github.com/commercelab/mollie-sync/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	store := postgres.NewStore(pool)
	gateway := mollie.NewClient(cfg.MollieBaseURL, cfg.MollieAPIKey)

	basketSvc := services.NewBasketService(store, cfg, log)
	mailer := services.NewLogMailer(log)
	reconciler := services.NewReconciler(store, gateway, basketSvc, mailer, cfg, log)
	checkoutSvc := services.NewCheckoutService(store, gateway, cfg, log)
	shippingSvc := services.NewShippingService(store, gateway, log)

	wp := worker.NewPool(4)
	defer wp.Stop()

	if cfg.SweepIntervalSeconds > 0 {
		sweeper := services.NewSweeper(store, reconciler, wp,
			time.Duration(cfg.SweepIntervalSeconds)*time.Second, log)
		go sweeper.Run(ctx)
	}

	tokens := auth.NewTokenManager(cfg.AdminJWTSecret, "mollie-sync")

	metrics.Init()
	r := api.NewRouter(api.Deps{
		Cfg:      cfg,
		Store:    store,
		Checkout: checkoutSvc,
		Rec:      reconciler,
		Basket:   basketSvc,
		Shipping: shippingSvc,
		Tokens:   tokens,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
