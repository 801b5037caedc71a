package router

import (
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hibiki-social/hibiki/router/consts"
	"github.com/hibiki-social/hibiki/router/extension/herror"
)

// getRequestUserID リクエストしてきたユーザーのIDを取得
func getRequestUserID(c echo.Context) string {
	return c.Get(consts.KeyUserID).(string)
}

// getParamAsUUID URLパラメータをUUIDとして取得
func getParamAsUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, herror.NotFound()
	}
	return id, nil
}
