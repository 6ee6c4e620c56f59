package journal

import (
	"context"

	"github.com/reconnect/repricer/internal/models"
)

// Journal records run and per-product outcomes so a run can be diagnosed
// without re-running it. Product-level methods are best-effort: a journal
// problem must never fail the batch.
type Journal interface {
	StartRun(ctx context.Context, listingURL string, products int) error
	ProductSaved(ctx context.Context, link *models.ProductLink, attempts int)
	ProductFailed(ctx context.Context, link *models.ProductLink, attempts int, err error)
	FinishRun(ctx context.Context, outcome *models.BatchOutcome, runErr error) error
	Close()
}

// Nop is used when no database is configured; the bot runs standalone.
type Nop struct{}

func (Nop) StartRun(context.Context, string, int) error { return nil }

func (Nop) ProductSaved(context.Context, *models.ProductLink, int) {}

func (Nop) ProductFailed(context.Context, *models.ProductLink, int, error) {}

func (Nop) FinishRun(context.Context, *models.BatchOutcome, error) error { return nil }

func (Nop) Close() {}
