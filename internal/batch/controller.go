package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reconnect/repricer/internal/models"
)

// ErrThresholdExceeded means too many products failed for the failures to
// be per-product flakiness; the target application is likely broken and
// the run must stop.
var ErrThresholdExceeded = errors.New("failure threshold exceeded")

// Committer commits new pricing for one product.
type Committer interface {
	Commit(ctx context.Context, link *models.ProductLink) error
}

// Observer is notified of per-product outcomes. Implementations must not
// fail the run; errors are theirs to log.
type Observer interface {
	ProductSaved(ctx context.Context, link *models.ProductLink, attempts int)
	ProductFailed(ctx context.Context, link *models.ProductLink, attempts int, err error)
}

// NopObserver ignores all outcomes.
type NopObserver struct{}

func (NopObserver) ProductSaved(context.Context, *models.ProductLink, int)         {}
func (NopObserver) ProductFailed(context.Context, *models.ProductLink, int, error) {}

// MultiObserver fans out to several observers.
type MultiObserver []Observer

func (m MultiObserver) ProductSaved(ctx context.Context, link *models.ProductLink, attempts int) {
	for _, o := range m {
		o.ProductSaved(ctx, link, attempts)
	}
}

func (m MultiObserver) ProductFailed(ctx context.Context, link *models.ProductLink, attempts int, err error) {
	for _, o := range m {
		o.ProductFailed(ctx, link, attempts, err)
	}
}

type Options struct {
	MaxAttempts int           // commit attempts per product
	RetryDelay  time.Duration // between attempts on the same product
	Cooldown    time.Duration // between products regardless of outcome
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		RetryDelay:  5 * time.Second,
		Cooldown:    5 * time.Second,
	}
}

// Controller drives the commit workflow across a harvested batch with
// bounded per-product retry and an aggregate failure circuit breaker.
type Controller struct {
	committer Committer
	observer  Observer
	opts      Options
	logger    *slog.Logger
}

func New(committer Committer, observer Observer, opts Options) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Controller{
		committer: committer,
		observer:  observer,
		opts:      opts,
		logger:    slog.Default().With("component", "batch"),
	}
}

// Run processes every link in order. A product that exhausts its retries
// is counted failed and the run continues, unless the failed count exceeds
// one third of the batch, which aborts the run with ErrThresholdExceeded.
func (c *Controller) Run(ctx context.Context, links []*models.ProductLink) (*models.BatchOutcome, error) {
	threshold := len(links) / 3
	outcome := &models.BatchOutcome{Threshold: threshold}

	c.logger.Info("starting batch", "products", len(links), "threshold", threshold)

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		attempts, err := c.commitWithRetry(ctx, link)
		switch {
		case err == nil:
			outcome.Processed++
			c.observer.ProductSaved(ctx, link, attempts)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return outcome, err
		default:
			outcome.Failed++
			c.observer.ProductFailed(ctx, link, attempts, err)
			c.logger.Error("product failed after retries",
				"url", link.EditURL, "attempts", attempts, "error", err)
			if outcome.Failed > threshold {
				return outcome, fmt.Errorf("%w: %d of %d products failed",
					ErrThresholdExceeded, outcome.Failed, len(links))
			}
		}

		if i < len(links)-1 {
			if err := c.sleep(ctx, c.opts.Cooldown); err != nil {
				return outcome, err
			}
		}
	}

	if outcome.Failed > 0 {
		c.logger.Warn("batch completed with failures",
			"processed", outcome.Processed, "failed", outcome.Failed)
	} else {
		c.logger.Info("batch completed", "processed", outcome.Processed)
	}
	return outcome, nil
}

// commitWithRetry attempts one product up to the retry ceiling. Most commit
// failures are transient UI timing, so every failure is retryable.
func (c *Controller) commitWithRetry(ctx context.Context, link *models.ProductLink) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Info("retrying product", "url", link.EditURL, "attempt", attempt)
			if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
				return attempt - 1, err
			}
		}

		err := c.committer.Commit(ctx, link)
		if err == nil {
			return attempt, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return attempt, err
		}

		lastErr = err
		c.logger.Warn("commit attempt failed",
			"url", link.EditURL, "attempt", attempt, "error", err)
	}

	return c.opts.MaxAttempts, fmt.Errorf("exhausted %d attempts: %w", c.opts.MaxAttempts, lastErr)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
