package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pricewatch/pricewatch/internal/database"
	"github.com/pricewatch/pricewatch/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePriceDropDetected is published when a scrape brings a
	// product's price to or below its alert threshold
	EventTypePriceDropDetected EventType = "PRICE_DROP_DETECTED"
)

// PriceDropPayload is the payload for PRICE_DROP_DETECTED events.
type PriceDropPayload struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	ProductURL    string          `json:"product_url"`
	Platform      models.Platform `json:"platform"`
	Currency      string          `json:"currency"`
	NewPrice      float64         `json:"new_price"`
	PreviousPrice *float64        `json:"previous_price,omitempty"`
	Threshold     float64         `json:"threshold"`
	Source        string          `json:"source"`
}

// OutboxStore is the slice of the outbox API the publisher needs (seam for
// tests).
type OutboxStore interface {
	Insert(ctx context.Context, event *database.OutboxEvent) error
}

// Publisher writes alert events through the transactional outbox so they
// survive process crashes and are relayed to Redis at least once.
type Publisher struct {
	outbox OutboxStore
	logger *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		outbox: database.NewOutboxRepository(db),
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishPriceDrop queues a PRICE_DROP_DETECTED event.
func (p *Publisher) PublishPriceDrop(ctx context.Context, payload *PriceDropPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypePriceDropDetected)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "pricewatch"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	event := &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   payload.ProductID,
		EventType:     string(EventTypePriceDropDetected),
		Payload:       data,
		TargetStream:  database.DefaultAlertStream,
	}

	if err := p.outbox.Insert(ctx, event); err != nil {
		return fmt.Errorf("failed to queue event: %w", err)
	}

	p.logger.Info("price drop event queued",
		"product_id", payload.ProductID,
		"new_price", payload.NewPrice,
		"threshold", payload.Threshold)

	return nil
}
