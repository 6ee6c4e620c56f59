package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/reconnect/repricer/internal/commit"
	"github.com/reconnect/repricer/internal/pricing"
)

const (
	pricesTabSelector  = `a#pills-prices-tab[data-toggle='pill'][data-target='#precos']`
	variantRowSelector = "tr.quantidade-variacoes"
	skuInputSelector   = "input.sku-inputs-verify"

	// The calculator panel is shared across variant rows; the per-row
	// control #lucro-<rowid> opens it for that row.
	rowIDPrefix = "sku-custom-"

	priceInputSelector       = "input.valor-produto-aliexpress"
	shippingInputSelector    = "input.valor-frete-aliexpress"
	marketingInputSelector   = "input.porcentagem-marketing"
	markupInputSelector      = "input.base-markup"
	promoMarkupInputSelector = "input.base-markup-promocional"
	applyButtonSelector      = "button#aplicarPrecosCalculadora"

	mainSaveSelector   = `button.dropi--btn-primary[data-toggle='modal'][data-target='#atualizarProdutoModal']`
	ignoreCostSelector = `p.ml-4:text('Ignorar atualização do custo das variações do produto.')`
	finalSaveSelector  = "button.salvarProduto"

	listingReturnGlob = "**/produtos"
)

// fieldWait bounds individual form-field lookups. A field that takes
// longer than this is treated as missing, which is a row-scoped skip.
const fieldWait = 5 * time.Second

// Detail drives the product edit surface of the back office.
type Detail struct {
	page playwright.Page
}

var _ commit.ProductDetail = (*Detail)(nil)

func NewDetail(page playwright.Page) *Detail {
	return &Detail{page: page}
}

func (d *Detail) Open(_ context.Context, editURL string) error {
	_, err := d.page.Goto(editURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to open product page: %w", err)
	}
	return nil
}

func (d *Detail) OpenPricesTab(timeout time.Duration) error {
	tab, err := d.page.WaitForSelector(pricesTabSelector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("prices tab not found: %w", err)
	}
	if err := tab.Click(); err != nil {
		return fmt.Errorf("failed to click prices tab: %w", err)
	}
	return nil
}

func (d *Detail) VariantRows(timeout time.Duration) ([]commit.VariantRow, error) {
	_, err := d.page.WaitForSelector(variantRowSelector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("no variant rows visible: %w", err)
	}
	time.Sleep(rowSettle)

	locator := d.page.Locator(variantRowSelector)
	count, err := locator.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count variant rows: %w", err)
	}

	rows := make([]commit.VariantRow, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, &variantRow{row: locator.Nth(i)})
	}
	return rows, nil
}

func (d *Detail) FillPrice(value string) error {
	return d.fill(priceInputSelector, value)
}

func (d *Detail) FillParameters(p pricing.Parameters) error {
	fields := []struct {
		selector string
		value    string
	}{
		{shippingInputSelector, p.ShippingPrice},
		{marketingInputSelector, p.MarketingPercent},
		{markupInputSelector, p.MarkupPercent},
		{promoMarkupInputSelector, p.PromoMarkupPercent},
	}
	for _, f := range fields {
		if err := d.fill(f.selector, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (d *Detail) ApplyCalculation() error {
	err := d.page.Locator(applyButtonSelector).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(fieldWait.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("apply button not found: %w", err)
	}
	return nil
}

func (d *Detail) Save(timeout time.Duration) error {
	return d.waitAndClick(mainSaveSelector, timeout, "main save button")
}

func (d *Detail) AcknowledgeCostUpdate(timeout time.Duration) error {
	return d.waitAndClick(ignoreCostSelector, timeout, "ignore cost checkbox")
}

func (d *Detail) FinalSave(timeout time.Duration) error {
	return d.waitAndClick(finalSaveSelector, timeout, "final save button")
}

func (d *Detail) WaitForListingReturn(timeout time.Duration) error {
	err := d.page.WaitForURL(listingReturnGlob, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("no navigation back to listing: %w", err)
	}
	if err := d.page.WaitForLoadState(); err != nil {
		return fmt.Errorf("listing did not finish loading: %w", err)
	}
	return nil
}

func (d *Detail) fill(selector, value string) error {
	err := d.page.Locator(selector).Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(fieldWait.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (d *Detail) waitAndClick(selector string, timeout time.Duration, name string) error {
	el, err := d.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%s not found: %w", name, err)
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("failed to click %s: %w", name, err)
	}
	return nil
}

type variantRow struct {
	row playwright.Locator
}

func (r *variantRow) SKU() (string, error) {
	value, err := r.row.Locator(skuInputSelector).GetAttribute("value", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(fieldWait.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("SKU field not found: %w", err)
	}
	return value, nil
}

func (r *variantRow) OpenCalculator() error {
	id, err := r.row.Locator(skuInputSelector).GetAttribute("id", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(fieldWait.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("SKU field id not found: %w", err)
	}
	rowID := strings.TrimPrefix(id, rowIDPrefix)

	err = r.row.Locator("#lucro-"+rowID).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(fieldWait.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("calculator button not found for row %s: %w", rowID, err)
	}
	return nil
}
