package metno

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/upstream"
	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/complete.json", r.URL.Path)
		assert.Equal(t, "35.6895", r.URL.Query().Get("lat"))
		assert.Equal(t, "139.6917", r.URL.Query().Get("lon"))
		assert.Equal(t, "weather-resolver/1.0 ops@example.com", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{"type":"Feature","properties":{"timeseries":[]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), "weather-resolver/1.0 ops@example.com", zap.NewNop())
	assert.Equal(t, "met.no", client.Name())

	payload, err := client.Fetch(context.Background(), domain.Coordinates{Latitude: 35.68951234, Longitude: 139.69171234})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Feature","properties":{"timeseries":[]}}`, string(payload))
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "forbidden without user agent",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var statusErr *upstream.StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
			},
		},
		{
			name:   "truncated body",
			status: http.StatusOK,
			body:   `{"type":"Feat`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrMalformedPayload)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, server.Client(), "", zap.NewNop())

			payload, err := client.Fetch(context.Background(), domain.Coordinates{Latitude: 1, Longitude: 2})
			assert.Nil(t, payload)
			tt.check(t, err)
		})
	}
}
