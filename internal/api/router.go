package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/winiceo/kevio/docs"
	"github.com/winiceo/kevio/internal/api/handler"
	"github.com/winiceo/kevio/internal/api/middleware"
)

// RouterDeps groups everything the HTTP surface needs.
type RouterDeps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Health    *handler.HealthHandler
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter assembles the Echo instance with middleware, metrics, swagger and
// all route groups.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("kevio"))

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.GET("/healthz", deps.Health.Liveness)
	e.GET("/readyz", deps.Health.Readiness)

	auth := e.Group("/auth")
	auth.POST("/register", deps.Auth.Register)
	auth.POST("/login", deps.Auth.Login)

	users := e.Group("/users", middleware.Auth(deps.JWTSecret), middleware.RequireType("admin"))
	users.GET("/:id", deps.Users.Get)
	users.PUT("/:id", deps.Users.Update)
	users.DELETE("/:id", deps.Users.Delete)
	users.GET("/:id/capabilities", deps.Users.Capabilities)

	return e
}

// requestLogger emits one structured access log line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
