package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopmesh/commerce-api/internal/api/handler"
	"github.com/shopmesh/commerce-api/internal/api/middleware"
	"github.com/shopmesh/commerce-api/internal/core/ports"
)

// Deps bundles everything the router needs; all construction happens in
// cmd/server so tests can wire stubs instead.
type Deps struct {
	Sessions ports.SessionService
	Users    ports.UserService
	Cookies  handler.CookiePolicy
	Mongo    *mongo.Database
	Redis    *redis.Client
	Logger   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("commerce"))

	authHandler := handler.NewAuthHandler(deps.Sessions, deps.Cookies)
	userHandler := handler.NewUserHandler(deps.Users)
	authenticated := middleware.Auth(deps.Sessions)

	// --- Session endpoints (public) ---
	auth := e.Group("/v1/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/refresh", authHandler.Refresh)

	// --- Account endpoints (authenticated) ---
	users := e.Group("/v1/users", authenticated)
	users.GET("/me", userHandler.Me)

	// --- Administration (authenticated + admin role) ---
	admin := e.Group("/v1/admin", authenticated, middleware.RequireAdmin())
	admin.GET("/users", userHandler.List)
	admin.PATCH("/users/:id/status", userHandler.SetStatus)

	// --- Operations endpoints (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	return e
}
