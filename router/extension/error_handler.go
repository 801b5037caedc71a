package extension

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/router/extension/herror"
)

// ErrorHandler カスタムエラーハンドラ
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(e error, c echo.Context) {
		var (
			code int
			body interface{}
		)

		var (
			httpErr     *echo.HTTPError
			internalErr *herror.InternalError
		)
		switch {
		case e == nil:
			return
		case errors.As(e, &httpErr):
			if httpErr.Internal != nil {
				var herr *echo.HTTPError
				if errors.As(httpErr.Internal, &herr) {
					httpErr = herr
				}
			}
			if m, ok := httpErr.Message.(string); ok {
				body = echo.Map{"message": m}
			} else if e, ok := httpErr.Message.(error); ok {
				body = echo.Map{"message": e.Error()}
			} else {
				body = echo.Map{"message": http.StatusText(httpErr.Code)}
			}
			code = httpErr.Code
		case errors.As(e, &internalErr):
			logger.Error(internalErr.Error(), append(internalErr.Fields, zap.String("requestId", GetRequestID(c)))...)
			code = http.StatusInternalServerError
			body = echo.Map{"message": http.StatusText(http.StatusInternalServerError)}
		default:
			logger.Error(e.Error(), zap.String("requestId", GetRequestID(c)))
			code = http.StatusInternalServerError
			body = echo.Map{"message": http.StatusText(http.StatusInternalServerError)}
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				e = c.NoContent(code)
			} else {
				e = json(c, code, body, jsoniter.ConfigFastest)
			}
			if e != nil {
				logger.Warn("failed to send error response", zap.Error(e), zap.String("requestId", GetRequestID(c)))
			}
		}
	}
}
