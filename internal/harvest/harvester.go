package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reconnect/repricer/internal/models"
)

// ErrListingUnreachable means the listing surface itself never rendered a
// row on the first page. This is fatal for the whole run.
var ErrListingUnreachable = errors.New("listing surface unreachable")

// ListingPage is the paginated listing surface of the back office. The
// production implementation lives in internal/pages; tests use a fake.
type ListingPage interface {
	// Open navigates to the given zero-based page index.
	Open(ctx context.Context, pageIndex int) error
	// Empty reports whether the page shows the explicit "no products"
	// indicator.
	Empty() (bool, error)
	// WaitForRows blocks until at least one listing row is visible or the
	// timeout elapses.
	WaitForRows(timeout time.Duration) error
	// Rows returns the listing rows currently on the page.
	Rows() ([]ListingRow, error)
}

// ListingRow is one row of the listing surface.
type ListingRow interface {
	// Removed reports whether the row is flagged as having a removed
	// external listing.
	Removed() (bool, error)
	// EditURL resolves the row's internal edit link.
	EditURL(timeout time.Duration) (string, error)
	// ListingURL resolves the row's external marketplace link.
	ListingURL(timeout time.Duration) (string, error)
}

type Options struct {
	RowWait time.Duration // wait for the first row on a page
	RefWait time.Duration // per-row reference resolution
}

func DefaultOptions() Options {
	return Options{
		RowWait: 30 * time.Second,
		RefWait: 5 * time.Second,
	}
}

// Harvester walks the listing surface page by page and collects the
// product links eligible for repricing.
type Harvester struct {
	listing ListingPage
	opts    Options
	logger  *slog.Logger
}

func New(listing ListingPage, opts Options) *Harvester {
	return &Harvester{
		listing: listing,
		opts:    opts,
		logger:  slog.Default().With("component", "harvester"),
	}
}

// Harvest iterates pages 0, 1, 2, ... until the listing reports no more
// products. Row-level problems skip the row; a missing page ends the walk.
// Only an unreachable first page is an error.
func (h *Harvester) Harvest(ctx context.Context) ([]*models.ProductLink, error) {
	var links []*models.ProductLink

	for pageIndex := 0; ; pageIndex++ {
		select {
		case <-ctx.Done():
			return links, ctx.Err()
		default:
		}

		h.logger.Info("harvesting listing page", "page", pageIndex)

		if err := h.listing.Open(ctx, pageIndex); err != nil {
			if pageIndex == 0 {
				return nil, fmt.Errorf("%w: %v", ErrListingUnreachable, err)
			}
			h.logger.Warn("failed to open page, stopping", "page", pageIndex, "error", err)
			break
		}

		empty, err := h.listing.Empty()
		if err == nil && empty {
			h.logger.Info("listing reports no products", "page", pageIndex)
			break
		}

		if err := h.listing.WaitForRows(h.opts.RowWait); err != nil {
			if pageIndex == 0 {
				return nil, fmt.Errorf("%w: %v", ErrListingUnreachable, err)
			}
			// Pagination has no explicit last-page marker; a page that
			// never shows a row is the end of the listing.
			h.logger.Info("no rows appeared, assuming last page", "page", pageIndex)
			break
		}

		rows, err := h.listing.Rows()
		if err != nil {
			if pageIndex == 0 {
				return nil, fmt.Errorf("%w: %v", ErrListingUnreachable, err)
			}
			h.logger.Warn("failed to read rows, stopping", "page", pageIndex, "error", err)
			break
		}
		if len(rows) == 0 {
			h.logger.Info("empty row set, assuming last page", "page", pageIndex)
			break
		}

		h.logger.Debug("found listing rows", "page", pageIndex, "count", len(rows))

		for i, row := range rows {
			link, ok := h.harvestRow(row)
			if !ok {
				h.logger.Debug("skipping row", "page", pageIndex, "row", i)
				continue
			}
			links = append(links, link)
		}
	}

	h.logger.Info("harvest completed", "links", len(links))
	return links, nil
}

// harvestRow extracts one ProductLink. Any per-row timeout or missing
// reference skips the row rather than failing the harvest.
func (h *Harvester) harvestRow(row ListingRow) (*models.ProductLink, bool) {
	removed, err := row.Removed()
	if err != nil {
		h.logger.Warn("failed to check removed flag", "error", err)
		return nil, false
	}
	if removed {
		return nil, false
	}

	editURL, err := row.EditURL(h.opts.RefWait)
	if err != nil || editURL == "" {
		h.logger.Warn("edit link not resolved", "error", err)
		return nil, false
	}

	listingURL, err := row.ListingURL(h.opts.RefWait)
	if err != nil || listingURL == "" {
		h.logger.Warn("marketplace link not resolved", "error", err)
		return nil, false
	}

	return models.NewProductLink(editURL, listingURL), true
}
