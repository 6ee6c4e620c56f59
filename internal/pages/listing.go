package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/reconnect/repricer/internal/harvest"
)

const (
	listingRowSelector = "tr.dropi--table-row-product"
	emptyStateSelector = "div.dropi--table-empty"

	removedTagSelector = `span.dropi--tag-red[data-original-title='O anúncio deste produto no Fornecedor foi removido, altere o produto para não exibir em sua loja']`

	editLinkSelector        = `a[href^='https://app.dropi.com.br/editar/produto/']`
	marketplaceLinkSelector = `a[href^='https://pt.aliexpress.com/item/']`
)

// rowSettle gives the listing's client-side rendering time to finish after
// the first row becomes visible.
const rowSettle = 2 * time.Second

// Listing drives the paginated product listing of the back office.
type Listing struct {
	page    playwright.Page
	baseURL string
}

var _ harvest.ListingPage = (*Listing)(nil)

func NewListing(page playwright.Page, baseURL string) *Listing {
	return &Listing{page: page, baseURL: baseURL}
}

func (l *Listing) Open(_ context.Context, pageIndex int) error {
	url := fmt.Sprintf("%s?page=%d", l.baseURL, pageIndex)
	_, err := l.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to open listing page %d: %w", pageIndex, err)
	}
	return nil
}

func (l *Listing) Empty() (bool, error) {
	count, err := l.page.Locator(emptyStateSelector).Count()
	if err != nil {
		return false, fmt.Errorf("failed to check empty state: %w", err)
	}
	return count > 0, nil
}

func (l *Listing) WaitForRows(timeout time.Duration) error {
	_, err := l.page.WaitForSelector(listingRowSelector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("no listing rows visible: %w", err)
	}
	time.Sleep(rowSettle)
	return nil
}

func (l *Listing) Rows() ([]harvest.ListingRow, error) {
	locator := l.page.Locator(listingRowSelector)
	count, err := locator.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count listing rows: %w", err)
	}

	rows := make([]harvest.ListingRow, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, &listingRow{row: locator.Nth(i)})
	}
	return rows, nil
}

type listingRow struct {
	row playwright.Locator
}

func (r *listingRow) Removed() (bool, error) {
	count, err := r.row.Locator(removedTagSelector).Count()
	if err != nil {
		return false, fmt.Errorf("failed to check removed tag: %w", err)
	}
	return count > 0, nil
}

func (r *listingRow) EditURL(timeout time.Duration) (string, error) {
	href, err := r.row.Locator(editLinkSelector).GetAttribute("href", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("edit link not found: %w", err)
	}
	return href, nil
}

func (r *listingRow) ListingURL(timeout time.Duration) (string, error) {
	href, err := r.row.Locator(marketplaceLinkSelector).GetAttribute("href", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("marketplace link not found: %w", err)
	}
	return href, nil
}
