package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reconnect/repricer/internal/models"
)

// Event types published to the run stream.
const (
	TypeRunStarted    = "RUN_STARTED"
	TypeProductSaved  = "PRODUCT_SAVED"
	TypeProductFailed = "PRODUCT_FAILED"
	TypeRunFinished   = "RUN_FINISHED"
	TypeRunAborted    = "RUN_ABORTED"
)

// RedisClient is the subset of the redis client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher emits run events to a Redis stream. Publishing is best-effort:
// a broken stream is logged and never fails the run.
type Publisher struct {
	client RedisClient
	stream string
	runID  uuid.UUID
	logger *slog.Logger
}

func New(addr, stream string) *Publisher {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), stream)
}

func NewWithClient(client RedisClient, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		runID:  uuid.New(),
		logger: slog.Default().With("component", "events"),
	}
}

type runStartedPayload struct {
	ListingURL string `json:"listing_url"`
	Products   int    `json:"products"`
}

type productPayload struct {
	EditURL    string `json:"edit_url"`
	ListingURL string `json:"listing_url"`
	SKU        string `json:"sku,omitempty"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
}

type runFinishedPayload struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Threshold int    `json:"threshold"`
	Error     string `json:"error,omitempty"`
}

func (p *Publisher) RunStarted(ctx context.Context, listingURL string, products int) {
	p.publish(ctx, TypeRunStarted, runStartedPayload{
		ListingURL: listingURL,
		Products:   products,
	})
}

func (p *Publisher) ProductSaved(ctx context.Context, link *models.ProductLink, attempts int) {
	p.publish(ctx, TypeProductSaved, productPayload{
		EditURL:    link.EditURL,
		ListingURL: link.ListingURL,
		SKU:        link.SKU,
		Attempts:   attempts,
	})
}

func (p *Publisher) ProductFailed(ctx context.Context, link *models.ProductLink, attempts int, err error) {
	p.publish(ctx, TypeProductFailed, productPayload{
		EditURL:    link.EditURL,
		ListingURL: link.ListingURL,
		SKU:        link.SKU,
		Attempts:   attempts,
		Error:      err.Error(),
	})
}

func (p *Publisher) RunFinished(ctx context.Context, outcome *models.BatchOutcome, runErr error) {
	eventType := TypeRunFinished
	payload := runFinishedPayload{
		Processed: outcome.Processed,
		Failed:    outcome.Failed,
		Threshold: outcome.Threshold,
	}
	if runErr != nil {
		eventType = TypeRunAborted
		payload.Error = runErr.Error()
	}
	p.publish(ctx, eventType, payload)
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event payload", "type", eventType, "error", err)
		return
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      eventType,
			"run_id":    p.runID.String(),
			"timestamp": fmt.Sprintf("%d", time.Now().UnixNano()),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		p.logger.Error("failed to publish event", "type", eventType, "error", err)
		return
	}

	p.logger.Debug("event published", "type", eventType, "run_id", p.runID)
}

func (p *Publisher) Close() {
	if err := p.client.Close(); err != nil {
		p.logger.Error("failed to close redis client", "error", err)
	}
}
