package router

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hibiki-social/hibiki/router/auth"
	"github.com/hibiki-social/hibiki/router/consts"
	"github.com/hibiki-social/hibiki/router/extension"
	"github.com/hibiki-social/hibiki/router/middlewares"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/service/ws"
)

// Handlers APIハンドラ
type Handlers struct {
	Registry *presence.Registry
	Calls    *call.Manager
	WS       *ws.Streamer
	Logger   *zap.Logger
	Config   *Config
}

// Setup APIサーバーハンドラを構築します
func Setup(registry *presence.Registry, calls *call.Manager, streamer *ws.Streamer, verifier *auth.Verifier, logger *zap.Logger, config *Config) *echo.Echo {
	logger = logger.Named("router")
	e := newEcho(logger, config)
	h := &Handlers{
		Registry: registry,
		Calls:    calls,
		WS:       streamer,
		Logger:   logger,
		Config:   config,
	}
	h.Setup(e.Group("/api"), verifier)
	return e
}

// Setup APIルーティングを行います
func (h *Handlers) Setup(api *echo.Group, verifier *auth.Verifier) {
	requiresLogin := middlewares.UserAuthenticate(verifier)

	api.GET("/metrics", echoprometheus.NewHandler())
	api.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, http.StatusText(http.StatusOK)) })
	api.GET("/version", h.GetVersion)

	wsMiddlewares := []echo.MiddlewareFunc{requiresLogin}
	if h.Config.HandshakeRateLimit > 0 {
		burst := h.Config.HandshakeBurst
		if burst <= 0 {
			burst = 1
		}
		wsMiddlewares = append([]echo.MiddlewareFunc{middlewares.RateLimit(rate.Limit(h.Config.HandshakeRateLimit), burst, h.Logger)}, wsMiddlewares...)
	}
	api.GET("/ws", echo.WrapHandler(h.WS), wsMiddlewares...)

	apiCalls := api.Group("/calls", requiresLogin)
	{
		apiCalls.GET("/stats", h.GetCallStats)
		apiCalls.GET("/:callID", h.GetCall)
	}
	apiUsers := api.Group("/users", requiresLogin)
	{
		apiUsersMe := apiUsers.Group("/me")
		{
			apiUsersMe.GET("/connections", h.GetMyConnections)
			apiUsersMe.GET("/call", h.GetMyCall)
		}
		apiUsers.GET("/:userID/presence", h.GetUserPresence)
	}
}

func newEcho(logger *zap.Logger, config *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = extension.ErrorHandler(logger)

	// ミドルウェア設定
	e.Use(middlewares.ServerVersion(config.Version))
	e.Use(middlewares.RequestID())
	if config.AccessLogging {
		e.Use(middlewares.AccessLogging(logger.Named("access_log"), config.Development))
	}
	e.Use(middlewares.Recovery(logger))
	e.Use(extension.Wrap())
	e.Use(middlewares.RequestCounter())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  config.AllowedOrigins,
		ExposeHeaders: []string{consts.HeaderVersion, echo.HeaderXRequestID},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization},
		MaxAge:        3600,
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "hibiki",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/ws"
		},
	}))

	return e
}
