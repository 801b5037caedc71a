package room

import (
	"strings"
	"testing"
	"time"

	"github.com/leandro-lugaresi/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/service/presence"
)

const testTopic = "test.broadcast"

func setup(t *testing.T, conns ...presence.Connection) (*Broker, hub.Subscription) {
	t.Helper()
	h := hub.New()
	sub := h.Subscribe(1000, event.RoomJoined, event.RoomLeft, event.UserOffline, testTopic)
	t.Cleanup(func() { h.Unsubscribe(sub) })
	reg := presence.NewRegistry(h, zap.NewNop())
	for _, c := range conns {
		reg.Register(c)
	}
	return NewBroker(reg, h, zap.NewNop()), sub
}

func drain(sub hub.Subscription) []hub.Message {
	var msgs []hub.Message
	for {
		select {
		case m := <-sub.Receiver:
			msgs = append(msgs, m)
		case <-time.After(50 * time.Millisecond):
			return msgs
		}
	}
}

var (
	c1 = presence.Connection{Key: "c1", UserID: "u1", DisplayName: "User 1", ProfilePic: "p1.png"}
	c2 = presence.Connection{Key: "c2", UserID: "u2", DisplayName: "User 2"}
	c3 = presence.Connection{Key: "c3", UserID: "u3", DisplayName: "User 3"}
)

func TestValidateRoomID(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRoomID("r1"))
	assert.NoError(t, ValidateRoomID("65f1c0ffee0000000000abcd"))
	assert.ErrorIs(t, ValidateRoomID(""), ErrInvalidRoom)
	assert.ErrorIs(t, ValidateRoomID("a b"), ErrInvalidRoom)
	assert.ErrorIs(t, ValidateRoomID("a\nb"), ErrInvalidRoom)
	assert.ErrorIs(t, ValidateRoomID(strings.Repeat("a", MaxRoomIDLength+1)), ErrInvalidRoom)
}

func TestBroker_Join(t *testing.T) {
	t.Parallel()

	t.Run("invalid room", func(t *testing.T) {
		t.Parallel()
		b, _ := setup(t, c1)
		_, err := b.Join("c1", "")
		assert.ErrorIs(t, err, ErrInvalidRoom)
	})

	t.Run("unknown connection", func(t *testing.T) {
		t.Parallel()
		b, _ := setup(t)
		_, err := b.Join("c1", "r1")
		assert.ErrorIs(t, err, ErrUnknownConnection)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		b, sub := setup(t, c1, c2)

		joined, err := b.Join("c1", "r1")
		require.NoError(t, err)
		assert.True(t, joined)
		joined, err = b.Join("c2", "r1")
		require.NoError(t, err)
		assert.True(t, joined)
		joined, err = b.Join("c2", "r1")
		require.NoError(t, err)
		assert.False(t, joined)

		assert.Equal(t, 2, b.MemberCount("r1"))
		assert.Equal(t, []string{"r1"}, b.Registry().Rooms("c2"))

		msgs := drain(sub)
		require.Len(t, msgs, 1, "first joiner has no peers and the repeated join notifies nobody")
		m := msgs[0]
		assert.Equal(t, event.RoomJoined, m.Topic())
		assert.Equal(t, "c2", m.Fields["conn_key"])
		assert.Equal(t, []string{"c1"}, m.Fields["targets"])
		assert.Equal(t, model.UserFragment{ID: "u2", DisplayName: "User 2"}, m.Fields["user"])
	})
}

func TestBroker_Leave(t *testing.T) {
	t.Parallel()
	b, sub := setup(t, c1, c2, c3)

	for _, c := range []string{"c1", "c2", "c3"} {
		_, err := b.Join(c, "r1")
		require.NoError(t, err)
	}
	drain(sub)

	left, err := b.Leave("c2", "r1")
	require.NoError(t, err)
	assert.True(t, left)
	left, err = b.Leave("c2", "r1")
	require.NoError(t, err)
	assert.False(t, left)

	assert.Equal(t, []string{"c1", "c3"}, b.Members("r1"))
	assert.Empty(t, b.Registry().Rooms("c2"))

	msgs := drain(sub)
	require.Len(t, msgs, 1)
	assert.Equal(t, event.RoomLeft, msgs[0].Topic())
	assert.Equal(t, []string{"c1", "c3"}, msgs[0].Fields["targets"])
}

func TestBroker_Broadcast(t *testing.T) {
	t.Parallel()
	b, sub := setup(t, c1, c2, c3)

	assert.Equal(t, 0, b.Broadcast("empty", testTopic, hub.Fields{"x": 1}))

	for _, c := range []string{"c1", "c2", "c3"} {
		_, err := b.Join(c, "r1")
		require.NoError(t, err)
	}
	drain(sub)

	fields := hub.Fields{"x": 1}
	assert.Equal(t, 3, b.Broadcast("r1", testTopic, fields))
	assert.Equal(t, 2, b.BroadcastExcept("r1", testTopic, fields, "c1"))
	assert.NotContains(t, fields, "targets", "input fields must not be modified")

	msgs := drain(sub)
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"c1", "c2", "c3"}, msgs[0].Fields["targets"])
	assert.Equal(t, "r1", msgs[0].Fields["room_id"])
	assert.Equal(t, 1, msgs[0].Fields["x"])
	assert.Equal(t, []string{"c2", "c3"}, msgs[1].Fields["targets"])

	_, err := b.Join("c1", "solo")
	require.NoError(t, err)
	assert.Equal(t, 0, b.BroadcastExcept("solo", testTopic, fields, "c1"))
}

func TestBroker_Disconnect(t *testing.T) {
	t.Parallel()
	b, sub := setup(t, c1, c2)

	for _, r := range []string{"r1", "r2"} {
		_, err := b.Join("c1", r)
		require.NoError(t, err)
		_, err = b.Join("c2", r)
		require.NoError(t, err)
	}
	drain(sub)

	conn, toOffline := b.Disconnect("c1")
	assert.True(t, toOffline)
	assert.Equal(t, "u1", conn.UserID)
	assert.Equal(t, []string{"c2"}, b.Members("r1"))
	assert.Equal(t, []string{"c2"}, b.Members("r2"))
	assert.False(t, b.IsMember("c1", "r1"))
	assert.False(t, b.Registry().IsOnline("u1"))

	msgs := drain(sub)
	require.Len(t, msgs, 3)
	assert.Equal(t, event.RoomLeft, msgs[0].Topic())
	assert.Equal(t, "r1", msgs[0].Fields["room_id"])
	assert.Equal(t, event.RoomLeft, msgs[1].Topic())
	assert.Equal(t, "r2", msgs[1].Fields["room_id"])
	assert.Equal(t, event.UserOffline, msgs[2].Topic())

	_, toOffline = b.Disconnect("c1")
	assert.False(t, toOffline)
}
