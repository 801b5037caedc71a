package router

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlers_GetUserPresence(t *testing.T) {
	t.Parallel()

	path := "/api/users/{userID}/presence"

	t.Run("not logged in", func(t *testing.T) {
		t.Parallel()
		R(t).GET(path, U()).
			Expect().
			Status(http.StatusUnauthorized)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		R(t).GET(path, U()).
			WithHeader("Authorization", "Bearer invalid").
			Expect().
			Status(http.StatusUnauthorized)
	})

	t.Run("offline user", func(t *testing.T) {
		t.Parallel()
		target := U()
		obj := R(t).GET(path, target).
			WithHeader("Authorization", "Bearer "+T(t, U())).
			Expect().
			Status(http.StatusOK).
			JSON().
			Object()
		obj.Value("userId").String().IsEqual(target)
		obj.Value("online").Boolean().IsFalse()
		obj.Value("busy").Boolean().IsFalse()
		obj.Value("inCall").Boolean().IsFalse()
		obj.Value("connections").Number().IsEqual(0)
	})

	t.Run("online user with two connections", func(t *testing.T) {
		t.Parallel()
		target := U()
		connect(t, target)
		connect(t, target)

		obj := R(t).GET(path, target).
			WithHeader("Authorization", "Bearer "+T(t, U())).
			Expect().
			Status(http.StatusOK).
			JSON().
			Object()
		obj.Value("online").Boolean().IsTrue()
		obj.Value("connections").Number().IsEqual(2)
	})

	t.Run("disconnect", func(t *testing.T) {
		t.Parallel()
		target := U()
		c := connect(t, target)
		require.NoError(t, c.conn.Close())
		require.Eventually(t, func() bool {
			return !registry.IsOnline(target)
		}, 2*time.Second, 10*time.Millisecond)

		R(t).GET(path, target).
			WithHeader("Authorization", "Bearer "+T(t, U())).
			Expect().
			Status(http.StatusOK).
			JSON().
			Object().
			Value("online").Boolean().IsFalse()
	})
}

func TestHandlers_GetMyConnections(t *testing.T) {
	t.Parallel()

	user := U()
	c := connect(t, user)
	c.send("join_chat", "join", map[string]interface{}{"chatId": "room-" + user})
	c.expectAck("join")

	arr := R(t).GET("/api/users/me/connections").
		WithHeader("Authorization", "Bearer "+T(t, user)).
		Expect().
		Status(http.StatusOK).
		JSON().
		Array()
	arr.Length().IsEqual(1)
	arr.Value(0).Object().Value("rooms").Array().ContainsOnly("room-" + user)
}
