// konto-import imports a bank-statement CSV into the snapshot without
// starting the server: parse, merge, apply rules, save, exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"konto/internal/cli"
	applog "konto/internal/log"
	"konto/internal/persist"
	"konto/internal/services"
	"konto/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentImport)

	file := flag.String("file", "", "CSV file to import ('-' or empty reads stdin)")
	applyOnly := flag.Bool("apply-rules", false, "skip the import and only re-apply rules to the stored transactions")
	flag.Parse()

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()
	gateway := result.Gateway

	st := store.New()
	snap, err := gateway.Load(ctx)
	switch {
	case err == nil:
		st.Restore(snap)
	case errors.Is(err, persist.ErrNoSnapshot):
		logger.Info("No snapshot found, starting empty")
	default:
		logger.Error("Failed to load snapshot", "error", err)
		os.Exit(1)
	}

	if *applyOnly {
		changed := st.ApplyRulesToAll()
		fmt.Printf("rules re-applied, %d transactions recategorized\n", changed)
		saveAndExit(ctx, gateway, st, logger, changed > 0)
	}

	reader, err := openInput(*file)
	if err != nil {
		logger.Error("Failed to open input", "error", err, "file", *file)
		os.Exit(1)
	}

	importer := &services.ImportService{Store: st}
	summary, err := importer.ImportCSV(ctx, reader)
	if closer, ok := reader.(io.Closer); ok {
		closer.Close()
	}
	if err != nil {
		logger.Error("Import failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("parsed %d rows: %d added, %d rejected, %d duplicates in file, %d already stored, %d rule-categorized (%d total)\n",
		summary.Parsed, summary.Added, summary.Rejected, summary.DuplicatesInFile,
		summary.AlreadyStored, summary.RuleCategorized, summary.TotalTransactions)
	for _, reason := range summary.RejectedReasons {
		fmt.Fprintf(os.Stderr, "rejected: %s\n", reason)
	}

	saveAndExit(ctx, gateway, st, logger, summary.Added > 0 || summary.RuleCategorized > 0)
}

func openInput(path string) (io.Reader, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

func saveAndExit(ctx context.Context, gateway persist.Gateway, st *store.Store, logger *applog.Logger, dirty bool) {
	if dirty {
		if err := gateway.Save(ctx, st.Snapshot()); err != nil {
			logger.Error("Failed to save snapshot", "error", err)
			os.Exit(1)
		}
		logger.Info("Snapshot saved")
	}
	os.Exit(0)
}
