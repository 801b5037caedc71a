package router

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hibiki-social/hibiki/router/extension/herror"
	"github.com/hibiki-social/hibiki/service/ws"
	"github.com/hibiki-social/hibiki/utils/validator"
)

type presenceResponse struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Busy        bool   `json:"busy"`
	InCall      bool   `json:"inCall"`
	Connections int    `json:"connections"`
}

// GetUserPresence GET /users/:userID/presence
func (h *Handlers) GetUserPresence(c echo.Context) error {
	userID := c.Param("userID")
	if err := validator.NoSpaceOrControl.Validate(userID); err != nil {
		return herror.BadRequest(err)
	}
	return c.JSON(http.StatusOK, &presenceResponse{
		UserID:      userID,
		Online:      h.Registry.IsOnline(userID),
		Busy:        h.Calls.IsUserBusy(userID),
		InCall:      h.Calls.IsUserInCall(userID),
		Connections: len(h.Registry.ConnectionsFor(userID)),
	})
}

type connectionResponse struct {
	Key         string    `json:"key"`
	ConnectedAt time.Time `json:"connectedAt"`
	Rooms       []string  `json:"rooms"`
}

// GetMyConnections GET /users/me/connections
func (h *Handlers) GetMyConnections(c echo.Context) error {
	userID := getRequestUserID(c)
	res := make([]connectionResponse, 0)
	h.WS.IterateSessions(func(session ws.Session) {
		if session.UserID() != userID {
			return
		}
		conn, ok := h.Registry.Connection(session.Key())
		if !ok {
			return
		}
		res = append(res, connectionResponse{
			Key:         conn.Key,
			ConnectedAt: conn.ConnectedAt,
			Rooms:       h.Registry.Rooms(conn.Key),
		})
	})
	sort.Slice(res, func(i, j int) bool { return res[i].ConnectedAt.Before(res[j].ConnectedAt) })
	return c.JSON(http.StatusOK, res)
}
