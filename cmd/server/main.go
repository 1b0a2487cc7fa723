package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/config"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/host"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/payout"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/server"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/storage"
)

func main() {
	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))

	if err := run(logger); err != nil {
		logger.Error("prize pool stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []host.Option{host.WithLogger(logger), host.WithDecimals(cfg.AmountDecimals)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, host.WithPublisher(publisher))
		logger.Info("publishing receipts", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// withdrawn value is paid into the in-process wallet book
	wallets := payout.NewWallets()

	pool, err := host.Deploy(ctx, cfg.Administrator, store, wallets, opts...)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.NewServer(pool, cfg.AmountDecimals, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("prize pool listening", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
