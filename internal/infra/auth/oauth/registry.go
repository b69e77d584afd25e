package oauth

import (
	"log/slog"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
)

// Registry is a static, read-only map of configured identity providers.
type Registry struct {
	providers map[entity.ProviderType]service.IdentityProvider
}

// NewRegistry builds one provider per oauth entry that has a client ID.
func NewRegistry(cfg *config.Config, logger *slog.Logger) service.IdentityProviderRegistry {
	providers := make([]service.IdentityProvider, 0, 4)

	if cfg.OAuth.Google.Enabled() {
		providers = append(providers, NewGoogleProvider(cfg.OAuth.Google))
	}
	if cfg.OAuth.GitHub.Enabled() {
		providers = append(providers, NewGitHubProvider(cfg.OAuth.GitHub))
	}
	if cfg.OAuth.Facebook.Enabled() {
		providers = append(providers, NewFacebookProvider(cfg.OAuth.Facebook))
	}
	if cfg.OAuth.Twitter.Enabled() {
		providers = append(providers, NewTwitterProvider(cfg.OAuth.Twitter))
	}

	registry := NewStaticRegistry(providers...)
	for name := range registry.providers {
		logger.Info("Identity provider enabled", slog.String("provider", name.String()))
	}

	return registry
}

// NewStaticRegistry registers the given providers under their own names.
func NewStaticRegistry(providers ...service.IdentityProvider) *Registry {
	registry := &Registry{providers: make(map[entity.ProviderType]service.IdentityProvider, len(providers))}
	for _, p := range providers {
		registry.providers[p.Name()] = p
	}

	return registry
}

// Get returns the provider registered under name.
func (r *Registry) Get(name entity.ProviderType) (service.IdentityProvider, bool) {
	p, ok := r.providers[name]

	return p, ok
}
