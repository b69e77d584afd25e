// Package cookie writes and reads the signed session cookies.
package cookie

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"

	"campus/config"
	"campus/internal/errors"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
	OAuthStateName   = "oauth_state"

	// Matches the lifetime of the server side state.
	oauthStateTTL = 10 * time.Minute
)

// Manager signs cookie values with HMAC so clients cannot forge them. Values are not encrypted.
type Manager struct {
	codec      *securecookie.SecureCookie
	domain     string
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager builds the cookie manager from the cookie secret and the token lifetimes.
func NewManager(cfg *config.Config) *Manager {
	codec := securecookie.New([]byte(cfg.SecretKey.Cookie), nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Auth.RefreshTokenTTL / time.Second))

	domain := ""
	if cfg.Cookie != nil {
		domain = cfg.Cookie.Domain
	}

	return &Manager{
		codec:      codec,
		domain:     domain,
		secure:     cfg.IsProduction(),
		accessTTL:  cfg.Auth.AccessTokenTTL,
		refreshTTL: cfg.Auth.RefreshTokenTTL,
	}
}

// SetSession writes both session cookies.
func (m *Manager) SetSession(c echo.Context, accessToken, refreshToken string) error {
	if err := m.set(c, AccessTokenName, accessToken, m.accessTTL); err != nil {
		return err
	}

	return m.set(c, RefreshTokenName, refreshToken, m.refreshTTL)
}

// Clear expires both session cookies.
func (m *Manager) Clear(c echo.Context) {
	for _, name := range []string{AccessTokenName, RefreshTokenName} {
		c.SetCookie(m.cookie(name, "", -1))
	}
}

// SetOAuthState binds an OAuth state to the browser that started the flow.
func (m *Manager) SetOAuthState(c echo.Context, state string) error {
	return m.set(c, OAuthStateName, state, oauthStateTTL)
}

// OAuthState returns the verified state cookie.
func (m *Manager) OAuthState(c echo.Context) (string, bool) {
	return m.get(c, OAuthStateName)
}

func (m *Manager) ClearOAuthState(c echo.Context) {
	c.SetCookie(m.cookie(OAuthStateName, "", -1))
}

// AccessToken returns the verified value of the access token cookie.
func (m *Manager) AccessToken(c echo.Context) (string, bool) {
	return m.get(c, AccessTokenName)
}

// RefreshToken returns the verified value of the refresh token cookie.
func (m *Manager) RefreshToken(c echo.Context) (string, bool) {
	return m.get(c, RefreshTokenName)
}

func (m *Manager) set(c echo.Context, name, value string, ttl time.Duration) error {
	encoded, err := m.codec.Encode(name, value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s cookie", name)
	}

	c.SetCookie(m.cookie(name, encoded, int(ttl/time.Second)))

	return nil
}

// get treats a tampered or expired cookie like a missing one.
func (m *Manager) get(c echo.Context, name string) (string, bool) {
	raw, err := c.Cookie(name)
	if err != nil || raw.Value == "" {
		return "", false
	}

	var value string
	if err := m.codec.Decode(name, raw.Value, &value); err != nil || value == "" {
		return "", false
	}

	return value, true
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
