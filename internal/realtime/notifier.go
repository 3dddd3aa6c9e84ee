package realtime

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Refresher reloads a topic and publishes its snapshot locally.
type Refresher func(ctx context.Context, topic string)

// Notifier announces that a topic's backing data changed.
type Notifier interface {
	Notify(ctx context.Context, topic string) error
}

// LocalNotifier refreshes in-process. It serves single instance deployments.
type LocalNotifier struct {
	refresh Refresher
}

// NewLocalNotifier wraps refresh.
func NewLocalNotifier(refresh Refresher) *LocalNotifier {
	return &LocalNotifier{refresh: refresh}
}

// Notify refreshes topic synchronously.
func (n *LocalNotifier) Notify(ctx context.Context, topic string) error {
	if n.refresh == nil {
		return errors.New("local notifier has no refresher")
	}
	n.refresh(ctx, topic)
	return nil
}

// RedisNotifier broadcasts change notifications over Redis pub/sub so
// every server instance refreshes its own subscribers.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     *zap.SugaredLogger
}

// NewRedisNotifier connects to the Redis URL.
func NewRedisNotifier(rawURL, channel string, log *zap.SugaredLogger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "eventify:changes"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RedisNotifier{client: redis.NewClient(opts), channel: channel, log: log}, nil
}

// Ping checks connectivity.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Notify publishes the topic name.
func (n *RedisNotifier) Notify(ctx context.Context, topic string) error {
	return n.client.Publish(ctx, n.channel, topic).Err()
}

// Listen subscribes to the channel and invokes refresh for every
// notification until ctx is cancelled.
func (n *RedisNotifier) Listen(ctx context.Context, refresh Refresher) error {
	pubsub := n.client.Subscribe(ctx, n.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topic := strings.TrimSpace(msg.Payload)
			if topic == "" {
				continue
			}
			n.log.Debugw("change notification", "topic", topic)
			refresh(ctx, topic)
		}
	}
}

// Close releases the Redis connection pool.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
