package presence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leandro-lugaresi/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
)

func setup(t *testing.T) (*Registry, hub.Subscription) {
	t.Helper()
	h := hub.New()
	sub := h.Subscribe(1000, event.UserOnline, event.UserOffline, event.UserReconnected)
	t.Cleanup(func() { h.Unsubscribe(sub) })
	return NewRegistry(h, zap.NewNop()), sub
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

func topics(msgs []hub.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Topic()
	}
	return out
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d connections", n), func(t *testing.T) {
			t.Parallel()
			r, sub := setup(t)

			for i := range n {
				toOnline := r.Register(Connection{Key: fmt.Sprintf("c%d", i), UserID: "u1", DisplayName: "User 1"})
				assert.Equal(t, i == 0, toOnline)
				assert.True(t, r.IsOnline("u1"))
			}
			assert.Len(t, r.ConnectionsFor("u1"), n)

			for i := range n {
				_, toOffline := r.Unregister(fmt.Sprintf("c%d", i))
				assert.Equal(t, i == n-1, toOffline)
				assert.Equal(t, i != n-1, r.IsOnline("u1"))
			}

			got := topics(drain(sub))
			expected := []string{event.UserOnline}
			for range n - 1 {
				expected = append(expected, event.UserReconnected)
			}
			expected = append(expected, event.UserOffline)
			assert.Equal(t, expected, got)
		})
	}
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	t.Parallel()
	r, sub := setup(t)

	assert.True(t, r.Register(Connection{Key: "c1", UserID: "u1"}))
	assert.False(t, r.Register(Connection{Key: "c1", UserID: "u1"}))
	assert.Equal(t, []string{"c1"}, r.ConnectionsFor("u1"))
	assert.Equal(t, []string{event.UserOnline}, topics(drain(sub)))
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	t.Parallel()
	r, sub := setup(t)

	c, toOffline := r.Unregister("nope")
	assert.False(t, toOffline)
	assert.Empty(t, c.Key)
	assert.Empty(t, drain(sub))
}

func TestRegistry_ReconnectedTargets(t *testing.T) {
	t.Parallel()
	r, sub := setup(t)

	r.Register(Connection{Key: "c1", UserID: "u1"})
	r.Register(Connection{Key: "c2", UserID: "u1"})

	msgs := drain(sub)
	require.Len(t, msgs, 2)
	m := msgs[1]
	assert.Equal(t, event.UserReconnected, m.Topic())
	assert.Equal(t, "c2", m.Fields["conn_key"])
	assert.Equal(t, 2, m.Fields["connections"])
	assert.Equal(t, []string{"c1", "c2"}, m.Fields["targets"])
}

func TestRegistry_ConnectionsForOrder(t *testing.T) {
	t.Parallel()
	r, _ := setup(t)

	r.Register(Connection{Key: "b", UserID: "u1"})
	r.Register(Connection{Key: "a", UserID: "u1"})
	r.Register(Connection{Key: "c", UserID: "u1"})
	r.Unregister("a")
	assert.Equal(t, []string{"b", "c"}, r.ConnectionsFor("u1"))
	assert.Empty(t, r.ConnectionsFor("u2"))
}

func TestRegistry_Rooms(t *testing.T) {
	t.Parallel()
	r, _ := setup(t)

	r.Register(Connection{Key: "c1", UserID: "u1"})
	assert.True(t, r.AddRoom("c1", "r1"))
	assert.False(t, r.AddRoom("c1", "r1"))
	assert.True(t, r.AddRoom("c1", "r2"))
	assert.False(t, r.AddRoom("unknown", "r1"))
	assert.Equal(t, []string{"r1", "r2"}, r.Rooms("c1"))
	assert.True(t, r.RemoveRoom("c1", "r1"))
	assert.False(t, r.RemoveRoom("c1", "r1"))
	assert.Equal(t, []string{"r2"}, r.Rooms("c1"))
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()
	r, sub := setup(t)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(Connection{Key: fmt.Sprintf("c%d", i), UserID: "u1"})
		}()
	}
	wg.Wait()
	assert.Len(t, r.ConnectionsFor("u1"), n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Unregister(fmt.Sprintf("c%d", i))
		}()
	}
	wg.Wait()
	assert.False(t, r.IsOnline("u1"))

	var online, offline int
	for _, m := range drain(sub) {
		switch m.Topic() {
		case event.UserOnline:
			online++
		case event.UserOffline:
			offline++
		}
	}
	assert.Equal(t, 1, online)
	assert.Equal(t, 1, offline)
}

func TestRegistry_OnlineUserIDs(t *testing.T) {
	t.Parallel()
	r, _ := setup(t)

	r.Register(Connection{Key: "c1", UserID: "u1"})
	r.Register(Connection{Key: "c2", UserID: "u2"})
	assert.ElementsMatch(t, []string{"u1", "u2"}, r.OnlineUserIDs())

	c, ok := r.Connection("c2")
	require.True(t, ok)
	assert.Equal(t, "u2", c.UserID)
	assert.False(t, c.ConnectedAt.IsZero())
}
