package database

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a mock for the Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockOutboxRepository is a mock for the outbox repository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	args := m.Called(ctx, id, err)
	return args.Error(0)
}

func testRelay(redisClient RedisClient, outbox OutboxRepo) *Relay {
	return &Relay{
		redis:     redisClient,
		outbox:    outbox,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchSize: 10,
	}
}

func alertEvent(productID string) *OutboxEvent {
	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "product",
		AggregateID:   productID,
		EventType:     "PRICE_DROP_DETECTED",
		Payload:       json.RawMessage(`{"product_id":"` + productID + `","new_price":44.99}`),
		TargetStream:  DefaultAlertStream,
		CreatedAt:     time.Now(),
	}
}

func TestRelayProcessEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks processed", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := testRelay(mockRedis, mockOutbox)

		events := []*OutboxEvent{alertEvent("prod-1"), alertEvent("prod-2")}
		mockOutbox.On("GetPending", ctx, 10).Return(events, nil)

		for _, event := range events {
			event := event
			mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
				values, ok := args.Values.(map[string]interface{})
				return ok && args.Stream == DefaultAlertStream &&
					values["event_type"] == event.EventType &&
					values["aggregate_id"] == event.AggregateID
			})).Return(nil)
			mockOutbox.On("MarkProcessed", ctx, event.ID).Return(nil)
		}

		require.NoError(t, relay.processEvents(ctx))

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("marks failed when publish fails", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := testRelay(mockRedis, mockOutbox)

		event := alertEvent("prod-3")
		mockOutbox.On("GetPending", ctx, 10).Return([]*OutboxEvent{event}, nil)

		publishErr := errors.New("redis down")
		mockRedis.On("XAdd", ctx, mock.Anything).Return(publishErr)
		mockOutbox.On("MarkFailed", ctx, event.ID, mock.Anything).Return(nil)

		require.NoError(t, relay.processEvents(ctx))

		mockOutbox.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := testRelay(mockRedis, mockOutbox)

		mockOutbox.On("GetPending", ctx, 10).Return([]*OutboxEvent{}, nil)

		require.NoError(t, relay.processEvents(ctx))
		mockRedis.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
	})

	t.Run("propagates outbox read failure", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := testRelay(mockRedis, mockOutbox)

		mockOutbox.On("GetPending", ctx, 10).Return(nil, errors.New("db down"))

		err := relay.processEvents(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get pending events")
	})
}

func TestRelayStreamPayload(t *testing.T) {
	ctx := context.Background()

	mockRedis := new(MockRedisClient)
	mockOutbox := new(MockOutboxRepository)
	relay := testRelay(mockRedis, mockOutbox)

	event := alertEvent("prod-9")

	var captured *redis.XAddArgs
	mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		captured = args
		return true
	})).Return(nil)
	mockOutbox.On("MarkProcessed", ctx, event.ID).Return(nil)

	require.NoError(t, relay.processEvent(ctx, event))
	require.NotNil(t, captured)

	var streamData map[string]any
	require.NoError(t, json.Unmarshal([]byte(captured.Values.(map[string]interface{})["data"].(string)), &streamData))

	assert.Equal(t, event.ID.String(), streamData["id"])
	assert.Equal(t, "PRICE_DROP_DETECTED", streamData["type"])

	metadata, ok := streamData["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pricewatch", metadata["source"])

	payload, ok := streamData["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "prod-9", payload["product_id"])
}

func TestNextRetryTime(t *testing.T) {
	now := time.Now()

	first := nextRetryTime(1)
	assert.WithinDuration(t, now.Add(2*time.Second), first, time.Second)

	capped := nextRetryTime(20)
	assert.WithinDuration(t, now.Add(300*time.Second), capped, time.Second)
}
