package oauth

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

const (
	googleIssuer      = "https://accounts.google.com"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var googleDefaultScopes = []string{oidc.ScopeOpenID, "email", "profile"}

// idTokenVerifier is satisfied by *oidc.IDTokenVerifier.
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// googleClaims holds the OpenID Connect claims Google returns in ID tokens and userinfo.
type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// toProfile drops an unverified email; it must never match an existing account.
func (c googleClaims) toProfile() *service.ProviderProfile {
	email := c.Email
	if !c.EmailVerified {
		email = ""
	}

	return &service.ProviderProfile{
		ProviderID: c.Sub,
		Email:      email,
		FirstName:  c.GivenName,
		LastName:   c.FamilyName,
		AvatarURL:  c.Picture,
	}
}

// NewGoogleProvider builds the Google provider. When the token response carries an id_token it is
// verified against Google's signing keys and used as the profile; otherwise userinfo is queried.
func NewGoogleProvider(cfg *config.OAuthProviderConfig, opts ...Option) service.IdentityProvider {
	o := applyOptions(opts)

	verifier := o.verifier
	if verifier == nil {
		keySet := oidc.NewRemoteKeySet(context.Background(), googleJWKSURL)
		verifier = oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{ClientID: cfg.ClientID})
	}

	profileURL := o.profileURL
	if profileURL == "" {
		profileURL = googleUserInfoURL
	}

	return &codeFlowProvider{
		name:   entity.ProviderGoogle,
		config: newOAuth2Config(cfg, google.Endpoint, googleDefaultScopes, o),
		fetch: func(ctx context.Context, client *http.Client, token *oauth2.Token) (*service.ProviderProfile, error) {
			if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
				idToken, err := verifier.Verify(ctx, rawIDToken)
				if err != nil {
					return nil, errors.Wrap(err, "invalid google id token")
				}

				var claims googleClaims
				if err := idToken.Claims(&claims); err != nil {
					return nil, errors.Wrap(err, "failed to decode google id token claims")
				}

				return claims.toProfile(), nil
			}

			var claims googleClaims
			if err := getJSON(ctx, client, profileURL, &claims); err != nil {
				return nil, err
			}

			return claims.toProfile(), nil
		},
	}
}
