package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reconnect/repricer/internal/models"
)

// ErrNoPrice is returned for any lookup that did not yield a usable price:
// non-2xx status, transport failure, or a malformed body. It is always
// recoverable by the caller.
var ErrNoPrice = errors.New("no price available")

type findRequest struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

type findResponse struct {
	Price *int64 `json:"price"`
}

// Client resolves current external prices through the pricing service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default().With("component", "resolver"),
	}
}

// Resolve looks up the current price for one variant. The returned price is
// in minor currency units. Every failure mode wraps ErrNoPrice.
func (c *Client) Resolve(ctx context.Context, sku, listingURL string) (*models.PricedVariant, error) {
	body, err := json.Marshal(findRequest{ID: sku, Link: listingURL})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrNoPrice, err)
	}

	url := c.baseURL + "/api/products/find"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrNoPrice, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("looking up price", "sku", sku, "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("price lookup request failed", "sku", sku, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("price lookup returned error status", "sku", sku, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrNoPrice, resp.StatusCode)
	}

	var out findResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Error("price lookup returned malformed body", "sku", sku, "error", err)
		return nil, fmt.Errorf("%w: decode response: %v", ErrNoPrice, err)
	}
	if out.Price == nil || *out.Price < 0 {
		return nil, fmt.Errorf("%w: response missing price", ErrNoPrice)
	}

	c.logger.Info("price resolved", "sku", sku, "price", *out.Price)

	return &models.PricedVariant{SKU: sku, Price: *out.Price}, nil
}
