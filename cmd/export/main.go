package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"fitstudio/internal/config"
	"fitstudio/internal/database"
	"fitstudio/internal/export"
	"fitstudio/internal/logging"
)

// Dumps the booking ledger to an .xlsx file for offline use.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	outPath := flag.String("out", "", "output file (defaults to exports dir with a timestamped name)")
	flag.Parse()

	if err := run(*configPath, *outPath); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath, outPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	bookings, err := db.ListBookings(context.Background())
	if err != nil {
		return err
	}

	workbook, err := export.BookingsWorkbook(bookings)
	if err != nil {
		return err
	}
	defer workbook.Close()

	if outPath == "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
		name := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102_150405"))
		outPath = filepath.Join(cfg.Exports.Path, name)
	}

	if err := workbook.SaveAs(outPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	logger.Info().Int("bookings", len(bookings)).Str("path", outPath).Msg("export written")
	return nil
}
