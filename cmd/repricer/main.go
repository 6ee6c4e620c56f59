package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reconnect/repricer/internal/batch"
	"github.com/reconnect/repricer/internal/browser"
	"github.com/reconnect/repricer/internal/commit"
	"github.com/reconnect/repricer/internal/config"
	"github.com/reconnect/repricer/internal/events"
	"github.com/reconnect/repricer/internal/harvest"
	"github.com/reconnect/repricer/internal/journal"
	"github.com/reconnect/repricer/internal/pages"
	"github.com/reconnect/repricer/internal/pricing"
	"github.com/reconnect/repricer/internal/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run completed successfully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var jrnl journal.Journal = journal.Nop{}
	if cfg.Journal.DatabaseURL != "" {
		pg, err := journal.Open(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			return err
		}
		jrnl = pg
		logger.Info("run journal enabled")
	}
	defer jrnl.Close()

	var publisher *events.Publisher
	if cfg.Events.RedisAddr != "" {
		publisher = events.New(cfg.Events.RedisAddr, cfg.Events.Stream)
		defer publisher.Close()
		logger.Info("run events enabled", "stream", cfg.Events.Stream)
	}

	session, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserDataDir:    cfg.Browser.UserDataDir,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	logger.Info("harvesting product links", "url", cfg.Listing.URL)

	listing := pages.NewListing(session.Page(), cfg.Listing.URL)
	harvester := harvest.New(listing, harvest.Options{
		RowWait: cfg.Listing.RowWait,
		RefWait: cfg.Listing.RefWait,
	})

	links, err := harvester.Harvest(ctx)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		logger.Info("no products to reprice")
		return nil
	}

	logger.Info("products discovered", "count", len(links))

	if err := jrnl.StartRun(ctx, cfg.Listing.URL, len(links)); err != nil {
		logger.Error("failed to journal run start", "error", err)
	}
	if publisher != nil {
		publisher.RunStarted(ctx, cfg.Listing.URL, len(links))
	}

	detail := pages.NewDetail(session.Page())
	workflow := commit.New(detail, resolver.New(cfg.Pricing.APIURL), pricing.Default, commit.Options{
		StepWait: cfg.Batch.StepWait,
		Settle:   cfg.Batch.Settle,
	})

	observers := batch.MultiObserver{jrnl}
	if publisher != nil {
		observers = append(observers, publisher)
	}

	controller := batch.New(workflow, observers, batch.Options{
		MaxAttempts: cfg.Batch.MaxAttempts,
		RetryDelay:  cfg.Batch.RetryDelay,
		Cooldown:    cfg.Batch.Cooldown,
	})

	outcome, runErr := controller.Run(ctx, links)

	if err := jrnl.FinishRun(context.WithoutCancel(ctx), outcome, runErr); err != nil {
		logger.Error("failed to journal run finish", "error", err)
	}
	if publisher != nil {
		publisher.RunFinished(context.WithoutCancel(ctx), outcome, runErr)
	}

	if runErr != nil {
		if errors.Is(runErr, batch.ErrThresholdExceeded) {
			logger.Error("aborted: too many failed products",
				"processed", outcome.Processed, "failed", outcome.Failed, "threshold", outcome.Threshold)
		}
		return runErr
	}

	if outcome.Failed > 0 {
		logger.Warn("completed with failed products",
			"processed", outcome.Processed, "failed", outcome.Failed)
	} else {
		logger.Info("all products repriced", "processed", outcome.Processed)
	}
	return nil
}
