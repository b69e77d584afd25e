package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"campus/config"
	"campus/internal/delivery"
	"campus/internal/delivery/api"
	"campus/internal/delivery/api/cookie"
	"campus/internal/delivery/api/middleware"
	"campus/internal/delivery/api/router/handler"
	"campus/internal/domain/service"
	"campus/internal/infra/auth"
	"campus/internal/infra/auth/oauth"
	"campus/internal/infra/cache"
	logs "campus/internal/infra/log"
	"campus/internal/infra/mail"
	"campus/internal/infra/metrics"
	"campus/internal/infra/persistence/migration"
	"campus/internal/infra/persistence/postgres"
	"campus/internal/infra/pubsub"
	"campus/internal/infra/ratelimit"
	"campus/internal/usecase/impl"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			migration.Register,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		cache.New,
		fx.Annotate(
			metrics.NewRegistry,
			fx.As(new(prometheus.Registerer)),
			fx.As(new(prometheus.Gatherer)),
		),
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewTokenRepository,
			postgres.NewSocialAccountRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewCredentialVerifier,
			auth.NewJWTIssuer,
			oauth.NewRegistry,
			oauth.NewStateStore,
			mail.NewSMTPMailer,
			pubsub.NewEventPublisher,
			ratelimit.New,
			fx.Annotate(
				metrics.NewCollector,
				fx.As(new(service.AuthMetrics)),
			),
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewCredentialService,
			impl.NewFederationService,
			impl.NewAdminService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			cookie.NewManager,
			middleware.NewAuthMiddleware,
			middleware.NewRateLimitMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewOAuthHandler,
			handler.NewAdminHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
