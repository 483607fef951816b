package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tasker/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	var (
		dbPath  = flag.String("db", "./data/tasker.db", "path to sqlite db")
		jobID   = flag.String("job", "", "job id to inspect")
		asJSON  = flag.Bool("json", false, "print records as JSON")
		timeout = flag.Duration("timeout", 30*time.Second, "query timeout")
	)
	flag.Parse()

	if strings.TrimSpace(*jobID) == "" {
		return fmt.Errorf("-job is required")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	records, err := db.QuotesForJob(ctx, *jobID)
	if err != nil {
		return fmt.Errorf("load quotes: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no quotes recorded for job %s", *jobID)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for _, rec := range records {
		fmt.Printf("quote %s (%s, %s) scheduled %s\n",
			rec.IdempotencyKey, rec.ServiceID, rec.Category, rec.ScheduledAt.Format(time.RFC3339))
		running := rec.BasePrice
		fmt.Printf("  base            %12.0f\n", running)
		for _, s := range rec.Surcharges {
			running *= s.Multiplier
			fmt.Printf("  x %-4.2f %-8s %12.0f\n", s.Multiplier, s.Reason, running)
		}
		fmt.Printf("  final           %12.0f\n", rec.FinalPrice)
	}
	return nil
}
