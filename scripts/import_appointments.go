package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"smiledent/internal/database"
	"smiledent/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		filePath = flag.String("file", "appointments.json", "path to the legacy appointments.json")
		dbPath   = flag.String("db", "./data/smiledent.db", "path to sqlite db")
	)
	flag.Parse()

	if _, err := os.Stat(*filePath); err != nil {
		return fmt.Errorf("legacy file: %w", err)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	before, err := db.CountAppointments(ctx)
	if err != nil {
		return fmt.Errorf("count appointments: %w", err)
	}

	importer := service.NewImportService(db, nil, &logger)
	inserted, err := importer.ImportFile(ctx, *filePath)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	after, err := db.CountAppointments(ctx)
	if err != nil {
		return fmt.Errorf("count appointments: %w", err)
	}

	fmt.Printf("Import finished: %d inserted, %d rows before, %d rows now\n", inserted, before, after)
	return nil
}
