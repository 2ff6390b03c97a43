package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test; the adapter caches globally.
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testQueueConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		ConsumerGroup:     "reconciler",
		ConsumerName:      "reconciler-test",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
	}
}

func TestQueue_PublishAndConsume(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	cfg := testQueueConfig("webhooks:test")
	cfg.MaxLen = 1000
	cfg.EnableDLQ = true

	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	event := map[string]string{"order_id": "ORD_100_GOLD_959", "response_code": "0"}

	_, err = q.PublishJSON(ctx, event, map[string]string{"type": "webhook"})
	require.NoError(t, err)

	received := make(chan bool, 1)
	handler := func(ctx context.Context, msg *Message) error {
		var data map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "ORD_100_GOLD_959", data["order_id"])
		assert.Equal(t, "webhook", msg.Metadata["type"])
		received <- true
		return nil
	}

	require.NoError(t, q.Consume(handler))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	q.Stop(time.Second)
}

func TestQueue_PublishJSON(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testQueueConfig("webhooks:json:test"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	payload := struct {
		OrderID string  `json:"order_id"`
		Amount  float64 `json:"amount"`
	}{
		OrderID: "ORD_101_SILVER_959",
		Amount:  700,
	}

	_, err = q.PublishJSON(ctx, payload, map[string]string{"source": "edge"})
	assert.NoError(t, err)
}

func TestQueue_RetryMechanism(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	cfg := testQueueConfig("webhooks:retry:test")
	cfg.MaxRetries = 2
	cfg.VisibilityTimeout = 1 * time.Second
	cfg.EnableDLQ = true

	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	_, err = q.PublishJSON(ctx, map[string]string{"order_id": "ORD_102_GOLD_959"}, nil)
	require.NoError(t, err)

	attempts := 0
	handler := func(ctx context.Context, msg *Message) error {
		attempts++
		if attempts <= 2 {
			return assert.AnError
		}
		return nil
	}

	require.NoError(t, q.Consume(handler))

	time.Sleep(500 * time.Millisecond)
	assert.GreaterOrEqual(t, attempts, 1)
}

func TestQueue_GetStats(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testQueueConfig("webhooks:stats:test"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := q.PublishJSON(ctx, map[string]int{"seq": i}, nil)
		require.NoError(t, err)
	}

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(5))
}

func TestMessage_AckNack(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testQueueConfig("webhooks:ack:test"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	t.Run("ack marks event as processed", func(t *testing.T) {
		// Publish for real so the ack has a valid stream id.
		msgID, err := q.Publish(context.Background(), []byte(`{"order_id":"ORD_1"}`), nil)
		require.NoError(t, err)

		msg := &Message{ID: msgID, queue: q}

		require.NoError(t, msg.Ack())
		assert.True(t, msg.acked)
		assert.False(t, msg.nacked)
	})

	t.Run("nack leaves event pending", func(t *testing.T) {
		msg := &Message{ID: "0-2", queue: q}

		require.NoError(t, msg.Nack())
		assert.False(t, msg.acked)
		assert.True(t, msg.nacked)
	})

	t.Run("double ack rejected", func(t *testing.T) {
		msg := &Message{ID: "0-3", acked: true}

		err := msg.Ack()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already acknowledged")
	})

	t.Run("double nack rejected", func(t *testing.T) {
		msg := &Message{ID: "0-4", nacked: true}

		err := msg.Nack()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already rejected")
	})
}

func TestQueueConfig_Validation(t *testing.T) {
	_, adapter := setupTestRedis(t)

	t.Run("name is required", func(t *testing.T) {
		_, err := NewQueue(adapter, QueueConfig{})
		assert.Error(t, err)
	})

	t.Run("zero values get defaults", func(t *testing.T) {
		q, err := NewQueue(adapter, QueueConfig{Name: "webhooks:defaults"})
		require.NoError(t, err)
		assert.Equal(t, 3, q.config.MaxRetries)
		assert.Equal(t, 30*time.Second, q.config.VisibilityTimeout)
		assert.Equal(t, int64(10), q.config.BatchSize)
		q.Stop(time.Second)
	})
}

func TestQueue_ConcurrentPublish(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testQueueConfig("webhooks:concurrent:test"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	numGoroutines := 10
	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			_, err := q.PublishJSON(ctx, map[string]int{"id": id}, nil)
			assert.NoError(t, err)
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(numGoroutines))
}

func TestQueue_Stop(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	q, err := NewQueue(adapter, testQueueConfig("webhooks:stop:test"))
	require.NoError(t, err)

	handler := func(ctx context.Context, msg *Message) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}

	require.NoError(t, q.Consume(handler))
	assert.NoError(t, q.Stop(2*time.Second))
}
