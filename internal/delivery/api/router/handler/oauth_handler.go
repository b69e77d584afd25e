package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"campus/internal/delivery/api/cookie"
	deliverycontext "campus/internal/delivery/context"
	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/errors"
	"campus/internal/usecase"
)

// OAuthHandlerParams holds dependencies for OAuthHandler, injected by Fx.
type OAuthHandlerParams struct {
	fx.In

	FederationUC usecase.FederationUsecase
	Cookies      *cookie.Manager
	Logger       *slog.Logger
}

// OAuthHandler drives the authorization code flow of the social providers.
type OAuthHandler struct {
	federationUC usecase.FederationUsecase
	cookies      *cookie.Manager
	logger       *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler.
func NewOAuthHandler(params OAuthHandlerParams) *OAuthHandler {
	return &OAuthHandler{
		federationUC: params.FederationUC,
		cookies:      params.Cookies,
		logger:       params.Logger,
	}
}

// Authorize handles GET /oauth/:provider by redirecting to the provider's consent page.
func (h *OAuthHandler) Authorize(c echo.Context) error {
	output, err := h.federationUC.AuthorizationURL(c.Request().Context(), entity.ProviderType(c.Param("provider")))
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.cookies.SetOAuthState(c, output.State); err != nil {
		return errors.WithStack(err)
	}

	return c.Redirect(http.StatusTemporaryRedirect, output.URL)
}

// Callback handles GET /oauth/:provider/callback. The query state must equal the state
// cookie set by Authorize, so a callback URL cannot be replayed in another browser.
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := entity.ProviderType(c.Param("provider"))

	bound, hasCookie := h.cookies.OAuthState(c)
	h.cookies.ClearOAuthState(c)

	// The provider reports a denied consent through the error parameter.
	if reason := c.QueryParam("error"); reason != "" {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Info("Provider denied authorization",
			slog.String("provider", provider.String()),
			slog.String("reason", reason),
		)

		return domainerrors.ErrOAuthFailed.WrapMessage(reason)
	}

	state := c.QueryParam("state")
	if !hasCookie || state == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		return domainerrors.ErrOAuthStateInvalid.WrapMessage("state does not match this browser")
	}

	output, err := h.federationUC.Callback(c.Request().Context(), &usecase.SocialCallbackInput{
		Provider:    provider,
		Code:        c.QueryParam("code"),
		State:       state,
		SessionMeta: sessionMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return respondWithSession(c, h.cookies, output, "Login successful")
}
