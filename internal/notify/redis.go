package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultChannel is the pub/sub channel notices are published on.
	DefaultChannel = "pvpguard:notices"
	// DefaultPublishQueue is how many notices may wait for Redis before new
	// ones are dropped.
	DefaultPublishQueue = 256
)

// RedisPublisher publishes notices as JSON on a Redis pub/sub channel so
// other services (chat relays, Discord bots) can mirror them.
//
// Notify only enqueues; a background goroutine talks to Redis, so a slow or
// unreachable Redis never stalls the game loop.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration

	queue  chan []byte
	done   <-chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRedisPublisher creates a publisher on channel (DefaultChannel if empty)
// and starts its sender. Call Close to stop it.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &RedisPublisher{
		client:  client,
		channel: channel,
		timeout: time.Second,
		queue:   make(chan []byte, DefaultPublishQueue),
		done:    ctx.Done(),
		cancel:  cancel,
	}
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

// Notify implements Notifier. Notices are dropped when the queue is full or
// the publisher is closed.
func (p *RedisPublisher) Notify(_ context.Context, n Notice) {
	select {
	case <-p.done:
		return
	default:
	}

	data, err := json.Marshal(n)
	if err != nil {
		slog.Error("encoding notice", "kind", n.Kind, "error", err)
		return
	}

	select {
	case p.queue <- data:
	default:
		slog.Warn("notice publish queue full, dropping",
			"channel", p.channel,
			"kind", n.Kind,
			"player", n.Player)
	}
}

// Close stops the sender. Queued notices that were not yet sent are dropped.
func (p *RedisPublisher) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

func (p *RedisPublisher) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-p.queue:
			p.publish(ctx, data)
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		slog.Warn("publishing notice", "channel", p.channel, "error", err)
	}
}
