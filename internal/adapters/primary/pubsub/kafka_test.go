package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/services"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	messages chan kafkago.Message

	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newFakeReader(msgs ...kafkago.Message) *fakeReader {
	r := &fakeReader{messages: make(chan kafkago.Message, len(msgs))}

	for _, msg := range msgs {
		r.messages <- msg
	}

	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}

	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]int64(nil), r.committed...)
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, msgs...)

	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) Messages() []kafkago.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]kafkago.Message(nil), w.messages...)
}

func TestKafkaBinding_RepliesPerRequest(t *testing.T) {
	reader := newFakeReader(
		kafkago.Message{
			Key:     []byte("req-1"),
			Value:   []byte(`{"place":"Tokyo"}`),
			Offset:  10,
			Headers: []kafkago.Header{{Key: CorrelationHeader, Value: []byte("corr-1")}},
		},
		kafkago.Message{
			Key:    []byte("req-2"),
			Value:  []byte(`{"place":"Tokyo","lat":1}`),
			Offset: 11,
		},
	)
	writer := &fakeWriter{}
	service := &fakeService{}
	metrics := newFakeMetrics()

	binding := NewKafkaBindingWith(reader, writer, services.NewDispatcher(service, zap.NewNop()), metrics, zap.NewNop())
	require.NoError(t, binding.Start(context.Background()))

	require.Eventually(t, func() bool { return len(writer.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, binding.Stop(ctx))

	replies := map[string]kafkago.Message{}
	for _, msg := range writer.Messages() {
		replies[string(msg.Key)] = msg
	}

	var ok domain.Envelope
	require.NoError(t, json.Unmarshal(replies["req-1"].Value, &ok))
	assert.Equal(t, "Asia/Tokyo", ok.Timezone)
	assert.Equal(t, "corr-1", headerValue(replies["req-1"].Headers, CorrelationHeader))

	var bad domain.Envelope
	require.NoError(t, json.Unmarshal(replies["req-2"].Value, &bad))
	assert.Equal(t, domain.BadRequest, bad.ErrorKind)
	assert.NotEmpty(t, headerValue(replies["req-2"].Headers, CorrelationHeader), "a correlation id is generated when absent")

	assert.Equal(t, []string{"place:Tokyo"}, service.Calls())
	assert.ElementsMatch(t, []int64{10, 11}, reader.Committed())
	assert.True(t, reader.closed)
	assert.Equal(t, 1, metrics.Count("kafka/ok"))
	assert.Equal(t, 1, metrics.Count("kafka/BAD_REQUEST"))
}

func TestReplyMessage(t *testing.T) {
	request := kafkago.Message{Key: []byte("key-1"), Value: []byte(`{"place":"x"}`)}

	msg, err := replyMessage(request, "corr-9", domain.ErrorEnvelope(domain.GeocodeError, "no match"))
	require.NoError(t, err)

	assert.Equal(t, []byte("key-1"), msg.Key)
	assert.JSONEq(t, `{"errorKind":"GEOCODE_ERROR","message":"no match"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, CorrelationHeader, msg.Headers[0].Key)
	assert.Equal(t, []byte("corr-9"), msg.Headers[0].Value)
}

func TestKafkaBinding_StopBeforeStart(t *testing.T) {
	binding := NewKafkaBindingWith(newFakeReader(), &fakeWriter{}, nil, nil, zap.NewNop())
	assert.NoError(t, binding.Stop(context.Background()))
}
