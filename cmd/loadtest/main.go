// Command loadtest submits generated Mer batches to a running import service
// and verifies the stored scores.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/scoreimport/internal/loadtest"
	"github.com/okian/scoreimport/pkg/logger"
)

func main() {
	cfg := loadtest.DefaultConfig()
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	flag.IntVar(&cfg.Users, "users", cfg.Users, "number of distinct users")
	flag.IntVar(&cfg.Batches, "batches", cfg.Batches, "uploads per user")
	flag.IntVar(&cfg.Records, "records", cfg.Records, "records per upload")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	flag.DurationVar(&cfg.Deadline, "deadline", cfg.Deadline, "how long to wait for imports to finish")
	flag.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "generator seed")
	flag.BoolVar(&cfg.Repeat, "repeat", false, "resubmit every batch once to exercise duplicate detection")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log every refused submission")
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Named("loadtest")
	if _, err := loadtest.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "load test failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
