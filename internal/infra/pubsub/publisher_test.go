package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"campus/config"
	"campus/internal/domain/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvent() *service.AuthEvent {
	return &service.AuthEvent{
		ID:         "evt-1",
		RequestID:  "req-1",
		Type:       service.AuthEventSocialLogin,
		UserID:     42,
		Email:      "alice@x.com",
		Provider:   "github",
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLocalHTTPPublisher_PostsPushMessage(t *testing.T) {
	var received PushMessage
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, discardLogger())
	require.NoError(t, publisher.PublishAuthEvent(context.Background(), sampleEvent()))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "evt-1", received.Message.MessageID)
	assert.Equal(t, "2024-05-01T12:00:00Z", received.Message.PublishTime)
	assert.Equal(t, "github", received.Message.Attributes["provider"])
	assert.Equal(t, "user-42", received.Message.OrderingKey)

	data, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)
	var event service.AuthEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, int64(42), event.UserID)
	assert.Equal(t, service.AuthEventSocialLogin, event.Type)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, discardLogger())
	err := publisher.PublishAuthEvent(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewPublishing(t *testing.T) {
	msg, err := newPublishing(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "evt-1", msg.MessageId)
	assert.Equal(t, "req-1", msg.CorrelationId)
	assert.Equal(t, service.AuthEventSocialLogin, msg.Type)
	assert.Equal(t, "github", msg.Headers["provider"])
	assert.Equal(t, "user-42", msg.Headers["ordering_key"])
	assert.JSONEq(t, `{"id":"evt-1","request_id":"req-1","type":"user.social_login","user_id":42,
		"email":"alice@x.com","provider":"github","occurred_at":"2024-05-01T12:00:00Z"}`, string(msg.Body))
}

func TestEventAttributes_OmitsEmptyOptionalFields(t *testing.T) {
	attrs := eventAttributes(&service.AuthEvent{ID: "e", Type: service.AuthEventUserRegistered})

	assert.Equal(t, map[string]string{"event_id": "e", "event_type": service.AuthEventUserRegistered}, attrs)
}

func TestEncodeEvent(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		_, err := encodeEvent(nil)
		assert.Error(t, err)
	})

	t.Run("anonymous event has no ordering key", func(t *testing.T) {
		encoded, err := encodeEvent(&service.AuthEvent{ID: "e", Type: service.AuthEventUserRegistered})
		require.NoError(t, err)

		assert.Empty(t, encoded.orderingKey)
		assert.Equal(t, "e", encoded.id)
	})
}

func TestNewEventPublisher(t *testing.T) {
	tests := []struct {
		name    string
		events  *config.EventsConfig
		wantErr string
		noop    bool
	}{
		{name: "nil section", events: nil, noop: true},
		{name: "empty provider", events: &config.EventsConfig{}, noop: true},
		{name: "local", events: &config.EventsConfig{Provider: ProviderLocal, LocalEndpoint: "http://localhost:9"}},
		{name: "local without endpoint", events: &config.EventsConfig{Provider: ProviderLocal}, wantErr: "local endpoint"},
		{name: "amqp without url", events: &config.EventsConfig{Provider: ProviderAMQP}, wantErr: "amqp url"},
		{name: "google without project", events: &config.EventsConfig{Provider: ProviderGoogle}, wantErr: "project ID"},
		{name: "unknown", events: &config.EventsConfig{Provider: "kafka"}, wantErr: "unknown events provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			publisher, err := NewEventPublisher(PublisherParams{
				Lc:     lc,
				Config: &config.Config{Events: tt.events},
				Logger: discardLogger(),
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}
			require.NoError(t, err)
			if tt.noop {
				assert.IsType(t, &noopPublisher{}, publisher)
				assert.NoError(t, publisher.PublishAuthEvent(context.Background(), sampleEvent()))
			}
			require.NoError(t, publisher.Close())
		})
	}
}
