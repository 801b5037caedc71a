package middlewares

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hibiki-social/hibiki/router/extension/herror"
)

// RateLimit クライアントIPごとにリクエストを制限するミドルウェア
//
// WebSocketのハンドシェイクなど、コネクションを生成するエンドポイントに使用します。
func RateLimit(limit rate.Limit, burst int, logger *zap.Logger) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			ok, err := store.Allow(ip)
			if err != nil {
				return herror.InternalServerError(err)
			}
			if !ok {
				logger.Warn("Exceeded rate limit.", zap.String("path", c.Path()), zap.String("ip", ip))
				return herror.HTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
