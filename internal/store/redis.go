package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOrders keeps Order Intents as JSON strings with a TTL, so pending
// orders survive restarts and are shared by every replica.
type RedisOrders struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOrders(client *redis.Client, ttl time.Duration) *RedisOrders {
	return &RedisOrders{client: client, ttl: ttl}
}

func (r *RedisOrders) Put(ctx context.Context, id string, intent Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("store: marshal intent: %w", err)
	}
	if err := r.client.Set(ctx, orderKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set order %s: %w", id, err)
	}
	return nil
}

// Take uses GETDEL so two concurrent webhook deliveries cannot both obtain the intent.
func (r *RedisOrders) Take(ctx context.Context, id string) (Intent, error) {
	data, err := r.client.GetDel(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Intent{}, ErrOrderNotFound
	}
	if err != nil {
		return Intent{}, fmt.Errorf("store: redis getdel order %s: %w", id, err)
	}

	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return Intent{}, fmt.Errorf("store: unmarshal intent %s: %w", id, err)
	}
	return intent, nil
}

func (r *RedisOrders) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, orderKey(id)).Err(); err != nil {
		return fmt.Errorf("store: redis delete order %s: %w", id, err)
	}
	return nil
}

// RedisLedger records webhook event ids with SETNX.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Record(ctx context.Context, eventID, eventType string, _ json.RawMessage) (bool, error) {
	first, err := l.client.SetNX(ctx, eventKey(eventID), eventType, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("store: redis setnx event %s: %w", eventID, err)
	}
	return first, nil
}

func orderKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

func eventKey(id string) string {
	return fmt.Sprintf("webhook:event:%s", id)
}
