package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/services"
)

func newRedisFixture(t *testing.T) (*redis.Client, *fakeService, *fakeMetrics) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	service := &fakeService{}
	metrics := newFakeMetrics()
	dispatcher := services.NewDispatcher(service, zap.NewNop())

	binding := NewRedisBinding(client, "weather", dispatcher, metrics, zap.NewNop())
	require.NoError(t, binding.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		assert.NoError(t, binding.Stop(ctx))
	})

	return client, service, metrics
}

func requestReply(t *testing.T, client *redis.Client, clientID, payload string) domain.Envelope {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	replies := client.Subscribe(ctx, ResponseChannel("weather", clientID))
	defer replies.Close()

	_, err := replies.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, RequestChannel("weather", clientID), payload).Err())

	msg, err := replies.ReceiveMessage(ctx)
	require.NoError(t, err)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))

	return env
}

func TestRedisBinding_PlaceRequest(t *testing.T) {
	client, service, metrics := newRedisFixture(t)

	env := requestReply(t, client, "alice", `{"place":"Tokyo"}`)

	require.False(t, env.IsError())
	assert.Equal(t, "Asia/Tokyo", env.Timezone)
	assert.Equal(t, "Tokyo, Japan", env.Location.DisplayName)
	assert.Equal(t, []string{"place:Tokyo"}, service.Calls())

	assert.Eventually(t, func() bool { return metrics.Count("redis/ok") == 1 }, time.Second, 10*time.Millisecond)
}

func TestRedisBinding_PointRequest(t *testing.T) {
	client, _, _ := newRedisFixture(t)

	env := requestReply(t, client, "bob", `{"lat":51.5074,"lon":-0.1278}`)

	require.False(t, env.IsError())
	assert.True(t, env.Location.InUK)
	assert.Nil(t, env.Forecast)
}

func TestRedisBinding_BadRequest(t *testing.T) {
	client, service, _ := newRedisFixture(t)

	env := requestReply(t, client, "carol", `{"foo":1}`)

	assert.Equal(t, domain.BadRequest, env.ErrorKind)
	assert.Empty(t, service.Calls())
}

func TestChannels(t *testing.T) {
	assert.Equal(t, "weather:request:alice", RequestChannel("weather", "alice"))
	assert.Equal(t, "weather:response:alice", ResponseChannel("weather", "alice"))
}
