package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads frames published on a Redis pub/sub channel. The
// FlowSync backend can publish feed events there instead of, or in
// addition to, serving them over /ws.
type RedisSource struct {
	pubsub   *redis.PubSub
	endpoint string

	closeOnce sync.Once
	closeErr  error
}

// SubscribeRedis subscribes to channel and waits for the server to
// confirm the subscription.
func SubscribeRedis(ctx context.Context, rdb *redis.Client, channel string) (*RedisSource, error) {
	pubsub := rdb.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}
	return &RedisSource{
		pubsub:   pubsub,
		endpoint: fmt.Sprintf("redis://%s/%s", rdb.Options().Addr, channel),
	}, nil
}

// ReadFrame returns the payload of the next published message.
func (s *RedisSource) ReadFrame(ctx context.Context) ([]byte, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *RedisSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

func (s *RedisSource) Endpoint() string { return s.endpoint }
