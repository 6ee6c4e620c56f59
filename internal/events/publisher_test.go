package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconnect/repricer/internal/models"
)

type fakeRedis struct {
	added   []*redis.XAddArgs
	xAddErr error
}

func (f *fakeRedis) XAdd(_ context.Context, args *redis.XAddArgs) *redis.StringCmd {
	f.added = append(f.added, args)
	if f.xAddErr != nil {
		return redis.NewStringResult("", f.xAddErr)
	}
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestPublisherEmitsProductEvents(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewWithClient(client, "stream:repricer_runs")

	link := models.NewProductLink("https://app.example/editar/produto/1", "https://market.example/item/1")
	link.SKU = "SKU-1"

	publisher.ProductSaved(context.Background(), link, 2)
	publisher.ProductFailed(context.Background(), link, 3, errors.New("save timeout"))

	require.Len(t, client.added, 2)

	saved := client.added[0]
	assert.Equal(t, "stream:repricer_runs", saved.Stream)
	assert.Equal(t, TypeProductSaved, saved.Values.(map[string]interface{})["type"])

	var payload productPayload
	data := saved.Values.(map[string]interface{})["data"].(string)
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "SKU-1", payload.SKU)
	assert.Equal(t, 2, payload.Attempts)
	assert.Empty(t, payload.Error)

	failed := client.added[1]
	assert.Equal(t, TypeProductFailed, failed.Values.(map[string]interface{})["type"])
	data = failed.Values.(map[string]interface{})["data"].(string)
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "save timeout", payload.Error)
}

func TestPublisherEmitsRunLifecycle(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewWithClient(client, "stream:repricer_runs")

	publisher.RunStarted(context.Background(), "https://app.example/produtos", 9)
	publisher.RunFinished(context.Background(), &models.BatchOutcome{Processed: 5, Failed: 4, Threshold: 3},
		errors.New("failure threshold exceeded"))

	require.Len(t, client.added, 2)
	assert.Equal(t, TypeRunStarted, client.added[0].Values.(map[string]interface{})["type"])
	assert.Equal(t, TypeRunAborted, client.added[1].Values.(map[string]interface{})["type"])

	var payload runFinishedPayload
	data := client.added[1].Values.(map[string]interface{})["data"].(string)
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, 5, payload.Processed)
	assert.Equal(t, 4, payload.Failed)
	assert.NotEmpty(t, payload.Error)
}

func TestPublisherSwallowsRedisErrors(t *testing.T) {
	client := &fakeRedis{xAddErr: errors.New("connection refused")}
	publisher := NewWithClient(client, "stream:repricer_runs")

	// Must not panic or propagate; events are best-effort.
	publisher.RunStarted(context.Background(), "https://app.example/produtos", 1)
	assert.Len(t, client.added, 1)
}
