package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"konto/internal/amqp"
	"konto/internal/cli"
	apphttp "konto/internal/http"
	applog "konto/internal/log"
	"konto/internal/persist"
	"konto/internal/services"
	"konto/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result := cli.InitBackend(ctx, logger, cfg)
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}
	gateway := result.Gateway

	st := store.New()
	if err := loadSnapshot(ctx, gateway, st, logger); err != nil {
		logger.Error("Failed to load snapshot", "error", err)
		os.Exit(1)
	}

	saver := persist.NewSaver(gateway, st, cfg.SaveDebounce)

	// AMQP is optional; without it the export worker simply never hears
	// about changes.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	importer := &services.ImportService{Store: st, Saver: saver, Publisher: publisher}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     st,
		Importer:  importer,
		Gateway:   gateway,
		Saver:     saver,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
		ReportCap: 12,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := saver.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting konto server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// loadSnapshot seeds the store from the persisted snapshot. A missing
// snapshot is a fresh start, not an error.
func loadSnapshot(ctx context.Context, gateway persist.Gateway, st *store.Store, logger *applog.Logger) error {
	snap, err := gateway.Load(ctx)
	if err != nil {
		if errors.Is(err, persist.ErrNoSnapshot) {
			logger.Info("No snapshot found, starting empty")
			return nil
		}
		return err
	}
	st.Restore(snap)
	logger.Info("Snapshot loaded",
		"transactions", len(snap.Transactions),
		"categories", len(snap.MainCategories),
		"rules", len(snap.Rules))
	return nil
}
