// konto-worker mirrors the persisted snapshot into a Google Sheets budget
// report. It listens for store-change messages over AMQP and additionally
// re-exports on a timer to catch anything a lost message would have missed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"konto/internal/amqp"
	"konto/internal/cli"
	"konto/internal/export"
	gsheet "konto/internal/export/google"
	"konto/internal/export/memory"
	applog "konto/internal/log"
	"konto/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting konto-worker")

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

	// Without a spreadsheet the worker still runs, writing reports to an
	// in-memory sink. Useful for smoke-testing the pipeline.
	var writer export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, reports stay in memory")
	}

	exportWorker := worker.NewExportWorker(result.Gateway, writer, 12)

	if err := exportWorker.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed", "error", err)
		// keep running; the next change or tick retries
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeStoreChanges(gctx, func(msg *amqp.StoreChangeMessage) error {
				return exportWorker.HandleChangeMessage(gctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on periodic export only")
	}

	g.Go(func() error {
		err := exportWorker.RunPeriodic(gctx, cfg.ExportInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
