package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/sweetshop/inventory-service/internal/api/handler"
	"github.com/sweetshop/inventory-service/internal/api/middleware"
	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
	"github.com/sweetshop/inventory-service/pkg/logger"
)

// Dependencies groups everything the router needs to mount its handlers.
type Dependencies struct {
	Auth         ports.AuthService
	Inventory    ports.InventoryService
	Logger       zerolog.Logger
	CORSOrigins  []string
	HealthChecks map[string]handler.DependencyCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestScopedLogger(deps.Logger))
	e.Use(requestLogger(deps.Logger))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: corsOrigins(deps.CORSOrigins),
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// --- Health checks and tooling (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/", healthHandler.Welcome)
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// The API is reachable both at the root and under /api.
	mountAPI(e.Group(""), deps)
	mountAPI(e.Group("/api"), deps)

	return e
}

func mountAPI(g *echo.Group, deps Dependencies) {
	authHandler := handler.NewAuthHandler(deps.Auth)
	sweetHandler := handler.NewSweetHandler(deps.Inventory)

	authenticated := middleware.Auth(deps.Auth)
	adminOnly := middleware.RBAC(deps.Auth, domain.RoleAdmin)
	anyRole := middleware.RBAC(deps.Auth, domain.RoleUser, domain.RoleAdmin)

	// --- Auth routes ---
	g.POST("/auth/register", authHandler.Register)
	g.POST("/auth/login", authHandler.Login)
	g.GET("/auth/me", authHandler.Me, authenticated)

	// --- Catalog (public) ---
	g.GET("/sweets", sweetHandler.List)
	g.GET("/sweets/search", sweetHandler.Search)

	// --- Catalog (admin only) ---
	g.POST("/sweets", sweetHandler.Create, authenticated, adminOnly)
	g.PUT("/sweets/:id", sweetHandler.Update, authenticated, adminOnly)
	g.DELETE("/sweets/:id", sweetHandler.Delete, authenticated, adminOnly)
	g.POST("/sweets/:id/restock", sweetHandler.Restock, authenticated, adminOnly)

	// --- Stock (any authenticated role) ---
	g.POST("/sweets/:id/purchase", sweetHandler.Purchase, authenticated, anyRole)
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// requestScopedLogger stores a logger tagged with the request id on the
// request context.
func requestScopedLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			scoped := log.With().Str("request_id", id).Logger()
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), scoped)))
			return next(c)
		}
	}
}
