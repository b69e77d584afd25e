// Package oauth implements the authorization code flow for the supported identity providers.
package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/errors"
	"campus/internal/util"
)

const maxProfileBodyBytes = 1 << 20

// profileFetcher turns an access token into a provider profile.
type profileFetcher func(ctx context.Context, client *http.Client, token *oauth2.Token) (*service.ProviderProfile, error)

// codeFlowProvider is the shared IdentityProvider implementation. Each provider contributes its
// endpoint, default scopes and profile fetcher.
type codeFlowProvider struct {
	name   entity.ProviderType
	config *oauth2.Config
	fetch  profileFetcher
}

// Option overrides provider defaults, mostly for tests against local servers.
type Option func(*providerOptions)

type providerOptions struct {
	endpoint   *oauth2.Endpoint
	profileURL string
	emailsURL  string
	verifier   idTokenVerifier
}

// WithEndpoint replaces the provider's authorization and token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(o *providerOptions) {
		o.endpoint = &endpoint
	}
}

// WithProfileURL replaces the endpoint the profile is read from.
func WithProfileURL(url string) Option {
	return func(o *providerOptions) {
		o.profileURL = url
	}
}

// WithEmailsURL replaces the GitHub endpoint listing the user's addresses.
func WithEmailsURL(url string) Option {
	return func(o *providerOptions) {
		o.emailsURL = url
	}
}

// WithIDTokenVerifier replaces the verifier used for Google ID tokens.
func WithIDTokenVerifier(verifier idTokenVerifier) Option {
	return func(o *providerOptions) {
		o.verifier = verifier
	}
}

func applyOptions(opts []Option) *providerOptions {
	o := &providerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

func newOAuth2Config(cfg *config.OAuthProviderConfig, endpoint oauth2.Endpoint, defaultScopes []string, o *providerOptions) *oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	if o.endpoint != nil {
		endpoint = *o.endpoint
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

// Name returns the provider this implementation serves.
func (p *codeFlowProvider) Name() entity.ProviderType {
	return p.name
}

// AuthCodeURL builds the consent URL. An empty verifier disables PKCE.
func (p *codeFlowProvider) AuthCodeURL(state, verifier string) string {
	if verifier == "" {
		return p.config.AuthCodeURL(state)
	}

	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// ExchangeCode trades the code for a token and reads the profile with it.
func (p *codeFlowProvider) ExchangeCode(ctx context.Context, code, verifier string) (*service.ProviderProfile, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := p.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s code exchange failed", p.name)
	}

	profile, err := p.fetch(ctx, p.config.Client(ctx, token), token)
	if err != nil {
		return nil, errors.Wrapf(err, "%s profile lookup failed", p.name)
	}
	if profile.ProviderID == "" {
		return nil, errors.Errorf("%s returned a profile without subject", p.name)
	}

	profile.Provider = p.name
	profile.Email = util.NormalizeEmail(profile.Email)

	return profile, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create profile request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "profile request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBodyBytes))
	if err != nil {
		return errors.Wrap(err, "failed to read profile response")
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("profile request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to decode profile response")
	}

	return nil
}
