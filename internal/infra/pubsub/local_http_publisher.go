package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"campus/internal/domain/service"
	"campus/internal/errors"
)

const (
	localPublishTimeout = 10 * time.Second
	localSubscription   = "projects/local/subscriptions/campus-auth-events"
)

// PushMessage is the push-subscription body posted by the local publisher,
// so a development consumer can share its decoding with a real push endpoint.
type PushMessage struct {
	Message      PushPayload `json:"message"`
	Subscription string      `json:"subscription"`
}

// PushPayload carries one base64 encoded event.
type PushPayload struct {
	Data        string            `json:"data"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId"`
	OrderingKey string            `json:"orderingKey,omitempty"`
	PublishTime string            `json:"publishTime"`
}

// localHTTPPublisher posts events to an HTTP endpoint for development.
type localHTTPPublisher struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewLocalHTTPPublisher(endpoint string, logger *slog.Logger) service.EventPublisher {
	return &localHTTPPublisher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: localPublishTimeout},
		logger:   logger,
	}
}

func (p *localHTTPPublisher) PublishAuthEvent(ctx context.Context, event *service.AuthEvent) error {
	encoded, err := encodeEvent(event)
	if err != nil {
		return err
	}

	req, err := p.newRequest(ctx, encoded, event)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "local publisher: post event")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("local publisher: endpoint answered %d", resp.StatusCode)
	}

	p.logger.DebugContext(ctx, "[LocalPubSub] Event delivered",
		slog.String("event_type", event.Type),
		slog.String("event_id", event.ID),
	)

	return nil
}

func (p *localHTTPPublisher) newRequest(ctx context.Context, encoded *encodedEvent, event *service.AuthEvent) (*http.Request, error) {
	body, err := json.Marshal(PushMessage{
		Subscription: localSubscription,
		Message: PushPayload{
			Data:        base64.StdEncoding.EncodeToString(encoded.body),
			Attributes:  encoded.attributes,
			MessageID:   encoded.id,
			OrderingKey: encoded.orderingKey,
			PublishTime: event.OccurredAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if event.RequestID != "" {
		req.Header.Set("X-Request-Id", event.RequestID)
	}

	return req, nil
}

func (p *localHTTPPublisher) Close() error {
	p.client.CloseIdleConnections()

	return nil
}
