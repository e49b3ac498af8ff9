package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub fans change notifications out over Redis pub/sub so every API instance sees
// writes made by any other instance.
type Hub struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewHub creates a hub publishing on channels named "<prefix>:<topic>".
func NewHub(client *redis.Client, prefix string, logger *zap.Logger) *Hub {
	return &Hub{client: client, prefix: prefix, logger: logger}
}

func (h *Hub) channel(t Topic) string {
	return h.prefix + ":" + t.String()
}

// Publish notifies subscribers of each topic.
func (h *Hub) Publish(ctx context.Context, topics ...Topic) error {
	for _, t := range topics {
		if err := h.client.Publish(ctx, h.channel(t), t.String()).Err(); err != nil {
			return fmt.Errorf("failed to publish %s: %w", t, err)
		}
	}
	return nil
}

// Subscribe calls onChange for every notification on topic, one at a time, until
// the returned Unsubscribe is called or ctx is done. If the pub/sub connection
// closes underneath, onLost receives ErrSubscriptionLost.
func (h *Hub) Subscribe(ctx context.Context, topic Topic, onChange func(), onLost func(error)) (Unsubscribe, error) {
	ps := h.client.Subscribe(ctx, h.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			if err := ps.Close(); err != nil {
				h.logger.Warn("Failed to close subscription", zap.String("topic", topic.String()), zap.Error(err))
			}
		})
	}

	msgs := ps.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					select {
					case <-done:
					default:
						if ctx.Err() == nil && onLost != nil {
							h.logger.Warn("Subscription channel closed", zap.String("topic", topic.String()))
							onLost(fmt.Errorf("%w: %s channel closed", ErrSubscriptionLost, topic))
						}
					}
					return
				}
				onChange()
			}
		}
	}()

	h.logger.Debug("Subscribed", zap.String("topic", topic.String()))
	return stop, nil
}
