package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/middleware"
)

// KafkaTransport labels Kafka resolutions in metrics.
const KafkaTransport = "kafka"

// CorrelationHeader is echoed from each request onto its reply.
const CorrelationHeader = "correlation_id"

// MessageReader is the consumer side of kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// MessageWriter is the producer side of kafkago.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaConfig addresses the request and reply topics.
type KafkaConfig struct {
	Brokers       []string
	RequestTopic  string
	ResponseTopic string
	GroupID       string
}

// KafkaBinding consumes requests from one topic and produces one reply per
// request on another, keyed like the request.
type KafkaBinding struct {
	reader     MessageReader
	writer     MessageWriter
	dispatcher ports.Dispatcher
	metrics    ports.ResolutionMetrics
	logger     *zap.Logger

	stopFetch context.CancelFunc
	stopWork  context.CancelFunc
	inflight  sync.WaitGroup
	done      chan struct{}
}

// NewKafkaBinding creates a binding backed by a consumer-group reader and a
// writer on the reply topic.
func NewKafkaBinding(cfg KafkaConfig, dispatcher ports.Dispatcher, metrics ports.ResolutionMetrics, logger *zap.Logger) *KafkaBinding {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.RequestTopic,
	})

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.ResponseTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}

	return NewKafkaBindingWith(reader, writer, dispatcher, metrics, logger)
}

// NewKafkaBindingWith creates a binding over an existing reader and writer.
func NewKafkaBindingWith(reader MessageReader, writer MessageWriter, dispatcher ports.Dispatcher, metrics ports.ResolutionMetrics, logger *zap.Logger) *KafkaBinding {
	return &KafkaBinding{
		reader:     reader,
		writer:     writer,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start begins consuming in the background.
func (b *KafkaBinding) Start(_ context.Context) error {
	fetchCtx, stopFetch := context.WithCancel(context.Background())
	workCtx, stopWork := context.WithCancel(context.Background())

	b.stopFetch = stopFetch
	b.stopWork = stopWork
	b.done = make(chan struct{})

	go b.consume(fetchCtx, workCtx)

	b.logger.Info("kafka binding started")

	return nil
}

func (b *KafkaBinding) consume(fetchCtx, workCtx context.Context) {
	defer close(b.done)

	for {
		msg, err := b.reader.FetchMessage(fetchCtx)
		if err != nil {
			if fetchCtx.Err() != nil {
				return
			}

			b.logger.Error("failed to fetch request", zap.Error(err))

			select {
			case <-fetchCtx.Done():
				return
			case <-time.After(time.Second):
			}

			continue
		}

		b.inflight.Add(1)

		go func(msg kafkago.Message) {
			defer b.inflight.Done()
			b.handle(workCtx, msg)
		}(msg)
	}
}

func (b *KafkaBinding) handle(ctx context.Context, msg kafkago.Message) {
	started := time.Now()

	ctx = middleware.WithRequestID(middleware.WithCorrelationID(ctx, headerValue(msg.Headers, CorrelationHeader)))

	env := b.dispatcher.Dispatch(ctx, msg.Value)

	if b.metrics != nil {
		b.metrics.RecordResolution(ctx, KafkaTransport, env.Outcome(), time.Since(started))
	}

	reply, err := replyMessage(msg, middleware.GetCorrelationID(ctx), env)
	if err != nil {
		b.logger.Error("failed to encode reply", zap.Error(err))
		return
	}

	if err := b.writer.WriteMessages(ctx, reply); err != nil {
		b.logger.Error("failed to produce reply",
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err))

		return
	}

	if err := b.reader.CommitMessages(ctx, msg); err != nil {
		b.logger.Warn("failed to commit request", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}

// replyMessage builds the reply for request: same key, the correlation ID
// header, and the envelope as value.
func replyMessage(request kafkago.Message, correlationID string, env domain.Envelope) (kafkago.Message, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize envelope: %w", err)
	}

	return kafkago.Message{
		Key:   request.Key,
		Value: data,
		Headers: []kafkago.Header{
			{Key: CorrelationHeader, Value: []byte(correlationID)},
		},
	}, nil
}

func headerValue(headers []kafkago.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}

	return ""
}

// Stop stops fetching, waits for in-flight requests until ctx expires, and
// closes the reader and writer.
func (b *KafkaBinding) Stop(ctx context.Context) error {
	if b.stopFetch == nil {
		return nil
	}

	b.stopFetch()

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
		err = fmt.Errorf("kafka binding did not drain: %w", ctx.Err())
	}

	b.stopWork()

	return errors.Join(err, b.reader.Close(), b.writer.Close())
}
