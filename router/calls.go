package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hibiki-social/hibiki/router/extension/herror"
)

// GetCallStats GET /calls/stats
func (h *Handlers) GetCallStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Calls.Stats())
}

// GetCall GET /calls/:callID
//
// 通話の参加者のみ取得できます。
func (h *Handlers) GetCall(c echo.Context) error {
	callID, err := getParamAsUUID(c, "callID")
	if err != nil {
		return err
	}
	call, ok := h.Calls.GetCall(callID)
	if !ok || !call.IsParticipant(getRequestUserID(c)) {
		return herror.NotFound()
	}
	return c.JSON(http.StatusOK, call)
}

// GetMyCall GET /users/me/call
func (h *Handlers) GetMyCall(c echo.Context) error {
	call, ok := h.Calls.GetUserCall(getRequestUserID(c))
	if !ok {
		return herror.NotFound("you are not in a call")
	}
	return c.JSON(http.StatusOK, call)
}
