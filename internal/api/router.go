package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/tasktracker/task-api/docs"
	"github.com/tasktracker/task-api/internal/api/handler"
	"github.com/tasktracker/task-api/internal/api/middleware"
	"github.com/tasktracker/task-api/internal/core/ports"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Log          zerolog.Logger
	AuthService  ports.AuthService
	TaskService  ports.TaskService
	RoleResolver ports.RoleResolver
	HealthChecks map[string]handler.CheckFunc
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("tasktracker"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	taskHandler := handler.NewTaskHandler(d.TaskService)
	healthHandler := handler.NewHealthHandler(d.HealthChecks)

	authenticated := []echo.MiddlewareFunc{
		middleware.Auth(d.AuthService),
		middleware.Principal(d.RoleResolver),
	}

	// --- Operational routes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/verify", authHandler.Verify)
	auth.GET("/me", authHandler.Me, authenticated...)

	// --- Task routes ---
	tasks := e.Group("/tasks", authenticated...)
	tasks.GET("", taskHandler.List)
	tasks.POST("", taskHandler.Create)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PATCH("/:id", taskHandler.Patch)
	tasks.PUT("/:id", taskHandler.Replace)
	tasks.DELETE("/:id", taskHandler.Delete)

	return e
}

// requestLogger writes one zerolog entry per request. Headers are never
// logged, so bearer tokens stay out of the logs.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			if p := middleware.PrincipalFrom(c); p != nil {
				evt = evt.Str("user_id", p.ID())
			}
			evt.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
