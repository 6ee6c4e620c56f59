package pricing

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The UI expects exactly two fraction digits with a comma separator in
// every parameter field.
var commaDecimal = regexp.MustCompile(`^\d+,\d{2}$`)

func TestDeriveIsDeterministic(t *testing.T) {
	prices := []string{"0.01", "50.00", "99.00", "150.00", "500.00", "1234.56"}

	for _, p := range prices {
		price := decimal.RequireFromString(p)
		first := Default.Derive(price)
		second := Default.Derive(price)
		assert.Equal(t, first, second, "price %s", p)
	}
}

func TestDefaultTableFormatting(t *testing.T) {
	for i, tier := range Default {
		assert.Regexp(t, commaDecimal, tier.Params.ShippingPrice, "tier %d shipping", i)
		assert.Regexp(t, commaDecimal, tier.Params.MarketingPercent, "tier %d marketing", i)
		assert.Regexp(t, commaDecimal, tier.Params.MarkupPercent, "tier %d markup", i)
		assert.Regexp(t, commaDecimal, tier.Params.PromoMarkupPercent, "tier %d promo", i)
	}
}

func TestDeriveTierSelection(t *testing.T) {
	tests := []struct {
		name       string
		price      string
		wantMarkup string
	}{
		{"lowest tier", "10.00", "20,00"},
		{"boundary stays in lower tier", "99.00", "20,00"},
		{"just past boundary", "99.01", "15,00"},
		{"second tier", "150.00", "15,00"},
		{"second boundary", "250.00", "15,00"},
		{"third tier", "300.00", "10,00"},
		{"fourth tier", "750.00", "10,00"},
		{"open-ended tail", "5000.00", "8,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := Default.Derive(decimal.RequireFromString(tt.price))
			assert.Equal(t, tt.wantMarkup, params.MarkupPercent)
		})
	}
}

func TestDeriveCustomTable(t *testing.T) {
	table := Table{
		{UpperBound: "100.00", Params: Parameters{MarkupPercent: "30,00"}},
		{UpperBound: "200.00", Params: Parameters{MarkupPercent: "25,00"}},
		{Params: Parameters{MarkupPercent: "20,00"}},
	}

	// 15000 minor units is 150.00 major, which lands in the 101-200 bucket.
	price := MajorUnits(15000)
	require.True(t, price.Equal(decimal.RequireFromString("150.00")))

	params := table.Derive(price)
	assert.Equal(t, "25,00", params.MarkupPercent)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name  string
		minor int64
		want  string
	}{
		{"round value", 15000, "150.00"},
		{"with cents", 12345, "123.45"},
		{"single cent", 1, "0.01"},
		{"zero", 0, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(tt.minor))
		})
	}
}
