package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDispatcher queues events on a Redis list and delivers them to local
// subscribers from Run. When some subscribers fail, the event is pushed back
// carrying only those subscribers until MaxAttempts is reached, after which
// it is parked on the dead-letter list. Subscribers are identified by
// registration order, so every consumer must subscribe in the same order.
type RedisDispatcher struct {
	client      *redis.Client
	queue       string
	deadLetter  string
	maxAttempts int
	popTimeout  time.Duration
	logger      *zap.Logger
	local       *inMemoryDispatcher
}

// RedisDispatcherConfig configures a RedisDispatcher.
type RedisDispatcherConfig struct {
	Queue       string
	MaxAttempts int
	PopTimeout  time.Duration
}

// NewRedisDispatcher creates a queue-backed dispatcher.
func NewRedisDispatcher(client *redis.Client, cfg RedisDispatcherConfig, logger *zap.Logger) *RedisDispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	return &RedisDispatcher{
		client:      client,
		queue:       cfg.Queue,
		deadLetter:  cfg.Queue + ":dead",
		maxAttempts: cfg.MaxAttempts,
		popTimeout:  cfg.PopTimeout,
		logger:      logger,
		local:       NewInMemoryDispatcher().(*inMemoryDispatcher),
	}
}

// Publish enqueues the event. Delivery happens asynchronously in Run.
func (d *RedisDispatcher) Publish(ctx context.Context, event Event) error {
	return d.push(ctx, d.queue, event)
}

// Subscribe registers a handler invoked by Run.
func (d *RedisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}

// Run consumes the queue until ctx is cancelled.
func (d *RedisDispatcher) Run(ctx context.Context) error {
	d.logger.Info("notification consumer started", zap.String("queue", d.queue))
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := d.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Warn("notification queue pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext waits up to the pop timeout for one event and delivers it.
// It reports whether an event was taken off the queue.
func (d *RedisDispatcher) ProcessNext(ctx context.Context) (bool, error) {
	res, err := d.client.BRPop(ctx, d.popTimeout, d.queue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var event Event
	if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
		d.logger.Error("dropping undecodable notification", zap.Error(err))
		if pushErr := d.client.LPush(ctx, d.deadLetter, res[1]).Err(); pushErr != nil {
			return true, pushErr
		}
		return true, nil
	}

	event.Attempts++
	failed, err := d.local.deliver(ctx, event, event.Pending)
	if err != nil {
		event.Pending = failed
		return true, d.retry(ctx, event, err)
	}
	return true, nil
}

func (d *RedisDispatcher) retry(ctx context.Context, event Event, cause error) error {
	if event.Attempts >= d.maxAttempts {
		d.logger.Error("notification delivery exhausted",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int("attempts", event.Attempts),
			zap.Error(cause))
		return d.push(ctx, d.deadLetter, event)
	}
	d.logger.Warn("notification delivery failed; requeueing",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("attempts", event.Attempts),
		zap.Ints("pending", event.Pending),
		zap.Error(cause))
	return d.push(ctx, d.queue, event)
}

func (d *RedisDispatcher) push(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := d.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("enqueue event on %s: %w", key, err)
	}
	return nil
}
