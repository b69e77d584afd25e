// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"campus/config"
	"campus/internal/delivery/api/middleware"
	"campus/internal/delivery/api/router/handler"
	"campus/internal/domain/entity"
	"campus/internal/infra/metrics"
)

// Rate limit scopes. Routes of one scope share a bucket per client.
const (
	scopeRegister       = "register"
	scopeLogin          = "login"
	scopeForgotPassword = "forgotpassword"
)

type RouterParams struct {
	fx.In

	AuthHandler         *handler.AuthHandler
	OAuthHandler        *handler.OAuthHandler
	AdminHandler        *handler.AdminHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	Gatherer            prometheus.Gatherer
	Config              *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	oauthHandler   *handler.OAuthHandler
	adminHandler   *handler.AdminHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimit      *middleware.RateLimitMiddleware
	gatherer       prometheus.Gatherer
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		oauthHandler:   params.OAuthHandler,
		adminHandler:   params.AdminHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimit:      params.RateLimitMiddleware,
		gatherer:       params.Gatherer,
		config:         params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	if r.config.Metrics != nil && r.config.Metrics.Enabled && r.gatherer != nil {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(metrics.Handler(r.gatherer)))
	}

	authGroup := e.Group("/api/v1/authentication")
	{
		authGroup.POST("/register", r.authHandler.Register, r.rateLimit.Limit(scopeRegister))
		authGroup.POST("/verify-email", r.authHandler.VerifyEmail)
		authGroup.POST("/login", r.authHandler.Login, r.rateLimit.Limit(scopeLogin))
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.DELETE("/logout", r.authHandler.Logout)
		authGroup.POST("/forgotpassword", r.authHandler.ForgotPassword, r.rateLimit.Limit(scopeForgotPassword))
		authGroup.PATCH("/resetpassword", r.authHandler.ResetPassword)

		// Routes that require a valid access token
		authGroup.GET("/showme", r.authHandler.Me, r.authMiddleware.Authenticate)
		authGroup.PATCH("/updatepassword", r.authHandler.UpdatePassword, r.authMiddleware.Authenticate)
	}

	// OAuth routes - separate group for better organization
	oauthGroup := authGroup.Group("/oauth")
	{
		oauthGroup.GET("/:provider", r.oauthHandler.Authorize)
		oauthGroup.GET("/:provider/callback", r.oauthHandler.Callback)
	}

	// Admin routes require authentication and the "admin" role
	adminGroup := e.Group("/api/v1/admin")
	adminGroup.Use(r.authMiddleware.Authenticate)                  // First, check if logged in
	adminGroup.Use(r.authMiddleware.RequireRole(entity.RoleAdmin)) // Then, check for the role
	{
		adminGroup.PATCH("/users/:id/blacklist", r.adminHandler.SetBlacklisted)
	}
}
