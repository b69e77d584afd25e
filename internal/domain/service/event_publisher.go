package service

import (
	"context"
	"time"
)

// Auth event types.
const (
	AuthEventUserRegistered = "user.registered"
	AuthEventUserLoggedIn   = "user.logged_in"
	AuthEventSocialLogin    = "user.social_login"
)

// AuthEvent is published after a successful account or session change
type AuthEvent struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAuthEvent publishes an auth event. Callers treat failures as non-fatal.
	PublishAuthEvent(ctx context.Context, event *AuthEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
