package models

// ProductLink pairs a locally-managed catalog entry with its external
// marketplace listing. EditURL and ListingURL are fixed at discovery time;
// SKU is filled in later when a variant row is found on the detail page.
type ProductLink struct {
	EditURL    string `json:"edit_url"`
	ListingURL string `json:"listing_url"`
	SKU        string `json:"sku,omitempty"`
}

func NewProductLink(editURL, listingURL string) *ProductLink {
	return &ProductLink{
		EditURL:    editURL,
		ListingURL: listingURL,
	}
}

// PricedVariant is the result of one remote price lookup for a variant row.
// Price is in minor currency units.
type PricedVariant struct {
	SKU   string `json:"sku"`
	Price int64  `json:"price"`
}

// BatchOutcome summarizes one repricing run.
type BatchOutcome struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Threshold int `json:"threshold"`
}
