package pubsub

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"campus/config"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

// Supported event providers.
const (
	ProviderLocal  = "local"
	ProviderAMQP   = "amqp"
	ProviderGoogle = "google"
)

// noopPublisher drops events when no provider is configured.
type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) PublishAuthEvent(ctx context.Context, event *service.AuthEvent) error {
	p.logger.DebugContext(ctx, "[NoopPubSub] Event dropped",
		slog.String("event_type", event.Type),
		slog.Int64("user_id", event.UserID),
	)

	return nil
}

func (p *noopPublisher) Close() error { return nil }

// PublisherParams holds dependencies for EventPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewEventPublisher selects the publisher named by events.provider and closes it on stop.
func NewEventPublisher(params PublisherParams) (service.EventPublisher, error) {
	cfg := params.Config.Events
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" {
		logger.Info("Events not configured, using no-op publisher")

		return &noopPublisher{logger: logger}, nil
	}

	if err := validateEvents(cfg); err != nil {
		return nil, err
	}

	publisher, err := dialPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Auth event publisher ready", slog.String("provider", cfg.Provider))

	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("Closing EventPublisher", slog.String("provider", cfg.Provider))

			return publisher.Close()
		},
	})

	return publisher, nil
}

func validateEvents(cfg *config.EventsConfig) error {
	switch cfg.Provider {
	case ProviderLocal:
		if cfg.LocalEndpoint == "" {
			return errors.New("local endpoint is required for local provider")
		}
	case ProviderAMQP:
		if cfg.AMQPURL == "" {
			return errors.New("amqp url is required for amqp provider")
		}
	case ProviderGoogle:
		if cfg.ProjectID == "" {
			return errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return errors.New("topic ID is required for google provider")
		}
	default:
		return errors.Errorf("unknown events provider: %s", cfg.Provider)
	}

	return nil
}

func dialPublisher(cfg *config.EventsConfig, logger *slog.Logger) (service.EventPublisher, error) {
	switch cfg.Provider {
	case ProviderAMQP:
		return NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, logger)
	case ProviderGoogle:
		return NewGooglePubSubPublisher(context.Background(), cfg.ProjectID, cfg.TopicID, logger)
	default:
		return NewLocalHTTPPublisher(cfg.LocalEndpoint, logger), nil
	}
}
