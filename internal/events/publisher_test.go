package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/database"
	"github.com/pricewatch/pricewatch/internal/models"
)

type fakeOutbox struct {
	inserted []*database.OutboxEvent
	err      error
}

func (f *fakeOutbox) Insert(ctx context.Context, event *database.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, event)
	return nil
}

func testPublisher(outbox OutboxStore) *Publisher {
	return &Publisher{
		outbox: outbox,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPublishPriceDrop(t *testing.T) {
	outbox := &fakeOutbox{}
	p := testPublisher(outbox)

	previous := 59.99
	payload := &PriceDropPayload{
		ProductID:     "prod-123",
		ProductName:   "Test Product",
		ProductURL:    "https://www.amazon.com/dp/B0",
		Platform:      models.PlatformAmazon,
		Currency:      "USD",
		NewPrice:      44.99,
		PreviousPrice: &previous,
		Threshold:     45.00,
	}

	err := p.PublishPriceDrop(context.Background(), payload)
	require.NoError(t, err)

	require.Len(t, outbox.inserted, 1)
	event := outbox.inserted[0]

	assert.Equal(t, "product", event.AggregateType)
	assert.Equal(t, "prod-123", event.AggregateID)
	assert.Equal(t, string(EventTypePriceDropDetected), event.EventType)
	assert.Equal(t, database.DefaultAlertStream, event.TargetStream)

	// Defaults are filled in before marshalling.
	assert.NotEmpty(t, payload.EventID)
	assert.Equal(t, string(EventTypePriceDropDetected), payload.EventType)
	assert.False(t, payload.Timestamp.IsZero())
	assert.Equal(t, "pricewatch", payload.Source)

	var decoded PriceDropPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, 44.99, decoded.NewPrice)
	assert.Equal(t, 45.00, decoded.Threshold)
	require.NotNil(t, decoded.PreviousPrice)
	assert.Equal(t, 59.99, *decoded.PreviousPrice)
}

func TestPublishPriceDropKeepsProvidedIdentity(t *testing.T) {
	outbox := &fakeOutbox{}
	p := testPublisher(outbox)

	payload := &PriceDropPayload{
		EventID:   "fixed-id",
		ProductID: "prod-456",
		NewPrice:  10,
		Threshold: 12,
	}

	require.NoError(t, p.PublishPriceDrop(context.Background(), payload))
	assert.Equal(t, "fixed-id", payload.EventID)
}

func TestPublishPriceDropInsertFailure(t *testing.T) {
	outbox := &fakeOutbox{err: errors.New("db down")}
	p := testPublisher(outbox)

	err := p.PublishPriceDrop(context.Background(), &PriceDropPayload{ProductID: "prod-789"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to queue event")
}
