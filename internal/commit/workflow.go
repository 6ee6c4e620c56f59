package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reconnect/repricer/internal/models"
	"github.com/reconnect/repricer/internal/pricing"
)

// ErrNotSaved means the application never navigated back to the listing
// after the final save, so the commit cannot be considered durable.
var ErrNotSaved = errors.New("product not saved")

// ProductDetail is the product edit surface of the back office. The
// calculator fields are page-level because the UI shares one calculator
// panel across variant rows; the per-row control opens it.
type ProductDetail interface {
	// Open navigates to the product's internal edit page.
	Open(ctx context.Context, editURL string) error
	// OpenPricesTab activates the prices tab.
	OpenPricesTab(timeout time.Duration) error
	// VariantRows waits for and returns the variant rows on the prices tab.
	VariantRows(timeout time.Duration) ([]VariantRow, error)
	// FillPrice writes the resolved price into the calculator price field.
	FillPrice(value string) error
	// FillParameters writes the derived pricing parameters.
	FillParameters(p pricing.Parameters) error
	// ApplyCalculation triggers the calculator's apply action.
	ApplyCalculation() error
	// Save triggers the product-level save action.
	Save(timeout time.Duration) error
	// AcknowledgeCostUpdate handles the ignore-cost-update confirmation.
	AcknowledgeCostUpdate(timeout time.Duration) error
	// FinalSave triggers the confirmation dialog's save action.
	FinalSave(timeout time.Duration) error
	// WaitForListingReturn blocks until the application navigates back to
	// the listing surface, which confirms the save landed.
	WaitForListingReturn(timeout time.Duration) error
}

// VariantRow is one variant row on the prices tab.
type VariantRow interface {
	// SKU reads the row's SKU field.
	SKU() (string, error)
	// OpenCalculator triggers the row's price recalculation control.
	OpenCalculator() error
}

// Resolver looks up the current external price for a variant.
type Resolver interface {
	Resolve(ctx context.Context, sku, listingURL string) (*models.PricedVariant, error)
}

type Options struct {
	StepWait time.Duration // required elements: tab, rows, save, confirmation
	Settle   time.Duration // fixed delay after UI actions that re-render
}

func DefaultOptions() Options {
	return Options{
		StepWait: 30 * time.Second,
		Settle:   2 * time.Second,
	}
}

// Workflow commits new pricing for one product through the multi-step
// save sequence of the edit surface.
type Workflow struct {
	detail   ProductDetail
	resolver Resolver
	table    pricing.Table
	opts     Options
	logger   *slog.Logger
}

func New(detail ProductDetail, resolver Resolver, table pricing.Table, opts Options) *Workflow {
	return &Workflow{
		detail:   detail,
		resolver: resolver,
		table:    table,
		opts:     opts,
		logger:   slog.Default().With("component", "commit"),
	}
}

// Commit reprices every variant row of one product and drives the
// save/confirm sequence. A failed required step fails the whole product;
// problems local to a single variant row only skip that row.
func (w *Workflow) Commit(ctx context.Context, link *models.ProductLink) error {
	w.logger.Info("processing product", "url", link.EditURL)

	if err := w.detail.Open(ctx, link.EditURL); err != nil {
		return fmt.Errorf("open product page: %w", err)
	}

	if err := w.detail.OpenPricesTab(w.opts.StepWait); err != nil {
		return fmt.Errorf("open prices tab: %w", err)
	}

	rows, err := w.detail.VariantRows(w.opts.StepWait)
	if err != nil {
		return fmt.Errorf("find variant rows: %w", err)
	}

	w.logger.Debug("found variant rows", "url", link.EditURL, "count", len(rows))

	for i, row := range rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.priceRow(ctx, link, row, i)
	}

	if err := w.detail.Save(w.opts.StepWait); err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	w.settle()

	if err := w.detail.AcknowledgeCostUpdate(w.opts.StepWait); err != nil {
		return fmt.Errorf("acknowledge cost update: %w", err)
	}
	w.settle()

	if err := w.detail.FinalSave(w.opts.StepWait); err != nil {
		return fmt.Errorf("final save: %w", err)
	}

	// The return navigation is the only durable signal that the save
	// actually landed.
	if err := w.detail.WaitForListingReturn(2 * w.opts.StepWait); err != nil {
		return fmt.Errorf("%w: %v", ErrNotSaved, err)
	}

	w.logger.Info("product saved", "url", link.EditURL, "sku", link.SKU)
	return nil
}

// priceRow handles one variant row. Every failure here is row-scoped:
// logged, then skipped.
func (w *Workflow) priceRow(ctx context.Context, link *models.ProductLink, row VariantRow, index int) {
	sku, err := row.SKU()
	if err != nil || sku == "" {
		w.logger.Warn("no SKU on variant row", "url", link.EditURL, "row", index, "error", err)
		return
	}
	link.SKU = sku

	variant, err := w.resolver.Resolve(ctx, sku, link.ListingURL)
	if err != nil {
		w.logger.Warn("no price for variant, skipping", "sku", sku, "error", err)
		return
	}

	if err := row.OpenCalculator(); err != nil {
		w.logger.Warn("could not open calculator", "sku", sku, "error", err)
		return
	}
	w.settle()

	price := pricing.FormatPrice(variant.Price)
	if err := w.detail.FillPrice(price); err != nil {
		w.logger.Warn("could not fill price field", "sku", sku, "error", err)
		return
	}

	params := w.table.Derive(pricing.MajorUnits(variant.Price))
	if err := w.detail.FillParameters(params); err != nil {
		w.logger.Warn("could not fill parameter fields", "sku", sku, "error", err)
		return
	}
	w.settle()

	if err := w.detail.ApplyCalculation(); err != nil {
		w.logger.Warn("could not apply calculation", "sku", sku, "error", err)
		return
	}
	w.settle()

	w.logger.Info("variant repriced", "sku", sku, "price", price, "markup", params.MarkupPercent)
}

func (w *Workflow) settle() {
	time.Sleep(w.opts.Settle)
}
