package impl

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	deliverycontext "campus/internal/delivery/context"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
)

// publishAuthEvent emits an auth event. Failures are logged and never reach the caller.
func publishAuthEvent(ctx context.Context, publisher service.EventPublisher, logger *slog.Logger, eventType string, user *entity.User, provider entity.ProviderType) {
	event := &service.AuthEvent{
		ID:         uuid.NewString(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   provider.String(),
		OccurredAt: time.Now().UTC(),
	}

	if err := publisher.PublishAuthEvent(ctx, event); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, logger).Warn("Failed to publish auth event",
			slog.String("type", eventType),
			slog.Int64("userID", user.ID),
			slog.Any("error", err),
		)
	}
}
