package pricing

import (
	"github.com/shopspring/decimal"
)

// Parameters are written verbatim into the target form fields. The UI
// expects two fraction digits with a comma separator, so the values are
// kept as exact strings rather than numbers.
type Parameters struct {
	ShippingPrice      string `json:"shipping_price"`
	MarketingPercent   string `json:"marketing_percent"`
	MarkupPercent      string `json:"markup_percent"`
	PromoMarkupPercent string `json:"promo_markup_percent"`
}

// Tier is one bucket of the rule table. An empty UpperBound marks the
// final open-ended bucket.
type Tier struct {
	UpperBound string
	Params     Parameters
}

// Table is an ascending list of tiers. The last tier must be open-ended.
type Table []Tier

// Default is the production rule table, keyed on the price in major units.
// Boundaries are inclusive: a price exactly on a bound takes that tier.
var Default = Table{
	{UpperBound: "99.00", Params: Parameters{
		ShippingPrice:      "24,00",
		MarketingPercent:   "10,00",
		MarkupPercent:      "20,00",
		PromoMarkupPercent: "15,00",
	}},
	{UpperBound: "250.00", Params: Parameters{
		ShippingPrice:      "00,00",
		MarketingPercent:   "10,00",
		MarkupPercent:      "15,00",
		PromoMarkupPercent: "10,00",
	}},
	{UpperBound: "500.00", Params: Parameters{
		ShippingPrice:      "00,00",
		MarketingPercent:   "10,00",
		MarkupPercent:      "10,00",
		PromoMarkupPercent: "7,00",
	}},
	{UpperBound: "1000.00", Params: Parameters{
		ShippingPrice:      "00,00",
		MarketingPercent:   "7,00",
		MarkupPercent:      "10,00",
		PromoMarkupPercent: "7,00",
	}},
	{Params: Parameters{
		ShippingPrice:      "00,00",
		MarketingPercent:   "5,00",
		MarkupPercent:      "8,00",
		PromoMarkupPercent: "5,00",
	}},
}

// Derive looks up the parameters for a price in major units: the first
// tier whose bound is >= price wins. Pure and total; the open-ended tail
// catches everything past the last bound.
func (t Table) Derive(price decimal.Decimal) Parameters {
	for _, tier := range t {
		if tier.UpperBound == "" {
			return tier.Params
		}
		if price.LessThanOrEqual(decimal.RequireFromString(tier.UpperBound)) {
			return tier.Params
		}
	}
	// A well-formed table never gets here; fall back to the last tier.
	return t[len(t)-1].Params
}

// MajorUnits converts a price in minor units to major units.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatPrice renders minor units the way the price field expects:
// dot-separated with two fraction digits, e.g. 15000 -> "150.00".
func FormatPrice(minor int64) string {
	return MajorUnits(minor).StringFixed(2)
}
