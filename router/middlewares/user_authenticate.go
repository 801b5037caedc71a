package middlewares

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/router/auth"
	"github.com/hibiki-social/hibiki/router/consts"
	"github.com/hibiki-social/hibiki/router/extension/ctxkey"
	"github.com/hibiki-social/hibiki/router/extension/herror"
)

const (
	authScheme     = "Bearer"
	tokenQueryName = "token"
)

// UserAuthenticate リクエスト認証ミドルウェア
//
// AuthorizationヘッダーのBearerトークン、もしくはクエリパラメータtokenを検証します。
// ブラウザのWebSocket APIはヘッダーを設定できないため、クエリパラメータも受け付けます。
func UserAuthenticate(v *auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			if ah := c.Request().Header.Get(echo.HeaderAuthorization); len(ah) > 0 {
				l := len(authScheme)
				if !(len(ah) > l+1 && strings.EqualFold(ah[:l], authScheme)) {
					return herror.Unauthorized("invalid authorization scheme")
				}
				token = strings.TrimSpace(ah[l+1:])
			} else {
				token = c.QueryParam(tokenQueryName)
			}
			if len(token) == 0 {
				return herror.Unauthorized("You are not logged in")
			}

			claims, err := v.Verify(token)
			if err != nil {
				return herror.Unauthorized("invalid token")
			}

			user := model.UserFragment{
				ID:          claims.Subject,
				DisplayName: claims.Name,
				ProfilePic:  claims.Picture,
			}
			if len(user.DisplayName) == 0 {
				user.DisplayName = user.ID
			}
			c.Set(consts.KeyUserID, user.ID)
			c.Set(consts.KeyUser, user)

			ctx := context.WithValue(c.Request().Context(), ctxkey.UserID, user.ID)
			ctx = context.WithValue(ctx, ctxkey.UserDisplayName, user.DisplayName)
			ctx = context.WithValue(ctx, ctxkey.UserProfilePic, user.ProfilePic)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
