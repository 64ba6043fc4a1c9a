package router // package router wires handlers and middleware onto Echo

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/duo/internal/config"
	"github.com/iliyamo/duo/internal/handler"
	"github.com/iliyamo/duo/internal/metrics"
	"github.com/iliyamo/duo/internal/middleware"
	"github.com/iliyamo/duo/internal/service"
)

// Deps is everything the routes need. Redis may be nil.
type Deps struct {
	Services       *service.Services
	DB             handler.Pinger
	Redis          *redis.Client
	Cache          config.CacheConfig
	RateLimit      config.RateLimitConfig
	Log            *slog.Logger
	RequestTimeout time.Duration
	Metrics        bool
}

// New builds an Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d)
	RegisterAPI(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.DB))
	if d.Metrics {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
}

// RegisterAPI registers /api. Every route passes through the request gate;
// routes that need a session add RequireAuth, self-only mutations add
// RequireSelf or check the body uid in the handler.
func RegisterAPI(e *echo.Echo, d Deps) {
	base := handler.Base{Log: d.Log, Timeout: d.RequestTimeout}
	authH := handler.NewAuthHandler(base, d.Services.Auth)
	usersH := handler.NewUserHandler(base, d.Services.Users)
	presenceH := handler.NewPresenceHandler(base, d.Services.Presence)

	api := e.Group("/api", middleware.Authenticate(d.Services.Sessions, d.Log))

	auth := api.Group("/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	auth.POST("/signup", authH.Signup)
	auth.POST("/login", authH.Login)
	auth.POST("/logout", authH.Logout)
	auth.GET("/me", authH.Me)

	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)
	users := api.Group("/users")
	users.GET("/search", usersH.Search, cache)
	users.GET("/:uid", usersH.Get, cache)
	invalidate := middleware.InvalidateUserCache(d.Cache, d.Redis, d.Log, "/api/users")
	users.POST("/:uid/status", usersH.UpdateStatus, middleware.RequireAuth(), middleware.RequireSelf("uid"), invalidate)
	users.POST("/:uid/stats", usersH.UpdateStats, middleware.RequireAuth(), middleware.RequireSelf("uid"), invalidate)

	presence := api.Group("/presence", middleware.RequireAuth())
	presence.POST("", presenceH.Set)
	presence.POST("/typing", presenceH.Typing)
	presence.GET("/:uid", presenceH.Get)
}
