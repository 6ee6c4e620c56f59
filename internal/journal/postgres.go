package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconnect/repricer/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS repricer_runs (
	id           UUID PRIMARY KEY,
	listing_url  TEXT NOT NULL,
	products     INT NOT NULL,
	processed    INT NOT NULL DEFAULT 0,
	failed       INT NOT NULL DEFAULT 0,
	threshold    INT NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'running',
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS repricer_products (
	id           UUID PRIMARY KEY,
	run_id       UUID NOT NULL REFERENCES repricer_runs(id),
	edit_url     TEXT NOT NULL,
	listing_url  TEXT NOT NULL,
	sku          TEXT,
	status       TEXT NOT NULL,
	attempts     INT NOT NULL,
	error        TEXT,
	recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_repricer_products_run ON repricer_products(run_id);
`

// Postgres journals run outcomes to a database.
type Postgres struct {
	pool   *pgxpool.Pool
	runID  uuid.UUID
	logger *slog.Logger
}

var _ Journal = (*Postgres)(nil)

func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Postgres{
		pool:   pool,
		logger: slog.Default().With("component", "journal"),
	}, nil
}

func (p *Postgres) StartRun(ctx context.Context, listingURL string, products int) error {
	p.runID = uuid.New()

	query := `
		INSERT INTO repricer_runs (id, listing_url, products, threshold, started_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := p.pool.Exec(ctx, query, p.runID, listingURL, products, products/3, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	p.logger.Info("run journaled", "run_id", p.runID, "products", products)
	return nil
}

func (p *Postgres) ProductSaved(ctx context.Context, link *models.ProductLink, attempts int) {
	p.recordProduct(ctx, link, "saved", attempts, nil)
}

func (p *Postgres) ProductFailed(ctx context.Context, link *models.ProductLink, attempts int, err error) {
	p.recordProduct(ctx, link, "failed", attempts, err)
}

func (p *Postgres) recordProduct(ctx context.Context, link *models.ProductLink, status string, attempts int, prodErr error) {
	query := `
		INSERT INTO repricer_products (id, run_id, edit_url, listing_url, sku, status, attempts, error, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var errText *string
	if prodErr != nil {
		s := prodErr.Error()
		errText = &s
	}

	_, err := p.pool.Exec(ctx, query,
		uuid.New(), p.runID, link.EditURL, link.ListingURL, link.SKU,
		status, attempts, errText, time.Now())
	if err != nil {
		p.logger.Error("failed to journal product",
			"run_id", p.runID, "url", link.EditURL, "error", err)
	}
}

func (p *Postgres) FinishRun(ctx context.Context, outcome *models.BatchOutcome, runErr error) error {
	status := "completed"
	var errText *string
	if runErr != nil {
		status = "aborted"
		s := runErr.Error()
		errText = &s
	}

	query := `
		UPDATE repricer_runs
		SET processed = $2, failed = $3, threshold = $4, status = $5, error = $6, finished_at = $7
		WHERE id = $1`

	_, err := p.pool.Exec(ctx, query,
		p.runID, outcome.Processed, outcome.Failed, outcome.Threshold,
		status, errText, time.Now())
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
