// Command integrity prints the funnel and offer integrity report as JSON.
//
//	integrity -project <id>
//	integrity            # all projects
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/irfndi/funnel-finance-go/internal/app"
	"github.com/irfndi/funnel-finance-go/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "integrity: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	projectID := flag.String("project", "", "project id to check (empty checks every project)")
	pretty := flag.Bool("pretty", true, "indent the JSON report")
	flag.Parse()
	if *projectID == "" && flag.NArg() > 0 {
		*projectID = flag.Arg(0)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the report.
	logger := app.NewLogger(cfg, os.Stderr)
	defer func() {
		_ = logger.Shutdown(context.Background())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	report, err := application.Integrity.BuildReport(ctx, *projectID)
	if err != nil {
		return fmt.Errorf("failed to build integrity report: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}
