// Package pubsub implements the asynchronous bindings of the resolver. Each
// inbound message is dispatched on its own goroutine and answered with
// exactly one envelope on the binding's reply address.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/middleware"
)

// RedisTransport labels Redis resolutions in metrics.
const RedisTransport = "redis"

// RedisBinding answers requests published on <prefix>:request:<client> with
// a reply on <prefix>:response:<client>.
type RedisBinding struct {
	client     *redis.Client
	prefix     string
	dispatcher ports.Dispatcher
	metrics    ports.ResolutionMetrics
	logger     *zap.Logger

	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	done     chan struct{}
}

// NewRedisBinding creates a Redis pub/sub binding.
//
// Parameters:
//   - client: Connected Redis client
//   - prefix: Channel prefix, e.g. "weather"
//   - dispatcher: Dispatcher shared with the other transports
//   - metrics: Resolution metrics recorder, or nil
//   - logger: Zap logger
//
// Returns:
//   - *RedisBinding: Binding ready to Start
func NewRedisBinding(client *redis.Client, prefix string, dispatcher ports.Dispatcher, metrics ports.ResolutionMetrics, logger *zap.Logger) *RedisBinding {
	return &RedisBinding{
		client:     client,
		prefix:     prefix,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// RequestChannel returns the channel a client publishes requests on.
func RequestChannel(prefix, clientID string) string {
	return prefix + ":request:" + clientID
}

// ResponseChannel returns the channel a client receives replies on.
func ResponseChannel(prefix, clientID string) string {
	return prefix + ":response:" + clientID
}

// Start subscribes to the request pattern and returns once the
// subscription is confirmed.
//
// Parameters:
//   - ctx: Context for the subscription handshake
//
// Returns:
//   - error: Subscription failure
func (b *RedisBinding) Start(ctx context.Context) error {
	pattern := RequestChannel(b.prefix, "*")
	pubsub := b.client.PSubscribe(ctx, pattern)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	b.pubsub = pubsub
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.consume(runCtx, pubsub.Channel())

	b.logger.Info("redis binding subscribed", zap.String("pattern", pattern))

	return nil
}

func (b *RedisBinding) consume(ctx context.Context, messages <-chan *redis.Message) {
	defer close(b.done)

	for msg := range messages {
		b.inflight.Add(1)

		go func(msg *redis.Message) {
			defer b.inflight.Done()
			b.handle(ctx, msg)
		}(msg)
	}
}

func (b *RedisBinding) handle(ctx context.Context, msg *redis.Message) {
	started := time.Now()

	clientID := strings.TrimPrefix(msg.Channel, b.prefix+":request:")
	if clientID == "" || clientID == msg.Channel {
		b.logger.Warn("dropping request without client id", zap.String("channel", msg.Channel))
		return
	}

	ctx = middleware.WithRequestID(middleware.WithCorrelationID(ctx, ""))

	env := b.dispatcher.Dispatch(ctx, []byte(msg.Payload))

	if b.metrics != nil {
		b.metrics.RecordResolution(ctx, RedisTransport, env.Outcome(), time.Since(started))
	}

	if err := b.reply(ctx, clientID, env); err != nil {
		b.logger.Error("failed to publish reply",
			zap.String("client_id", clientID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err))
	}
}

func (b *RedisBinding) reply(ctx context.Context, clientID string, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	return b.client.Publish(ctx, ResponseChannel(b.prefix, clientID), data).Err()
}

// Stop unsubscribes and waits for in-flight requests until ctx expires.
func (b *RedisBinding) Stop(ctx context.Context) error {
	if b.pubsub == nil {
		return nil
	}

	closeErr := b.pubsub.Close()

	drained := make(chan struct{})

	go func() {
		<-b.done
		b.inflight.Wait()
		close(drained)
	}()

	var err error

	select {
	case <-drained:
	case <-ctx.Done():
		err = fmt.Errorf("redis binding did not drain: %w", ctx.Err())
	}

	b.cancel()

	return errors.Join(closeErr, err)
}
