package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/leandro-lugaresi/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/ws"
	"github.com/hibiki-social/hibiki/utils/mediaurl"
)

type frame struct {
	t      string
	body   interface{}
	target ws.TargetFunc
}

type recorder struct {
	frames chan frame
}

func (r *recorder) WriteMessage(t string, body interface{}, targetFunc ws.TargetFunc) {
	r.frames <- frame{t: t, body: body, target: targetFunc}
}

type fakeSession struct {
	key    string
	userID string
}

func (s *fakeSession) Key() string    { return s.key }
func (s *fakeSession) UserID() string { return s.userID }

func setup(t *testing.T) (*hub.Hub, *recorder) {
	t.Helper()
	h := hub.New()
	rec := &recorder{frames: make(chan frame, 100)}
	ns := NewService(h, zap.NewNop(), rec, mediaurl.NewResolver("https://cdn.example.com"))
	t.Cleanup(ns.Close)
	return h, rec
}

func next(t *testing.T, rec *recorder) frame {
	t.Helper()
	select {
	case f := <-rec.frames:
		return f
	case <-time.After(time.Second):
		require.FailNow(t, "no frame written")
		return frame{}
	}
}

func TestService_Presence(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	now := time.Now()
	h.Publish(hub.Message{
		Name: event.UserOnline,
		Fields: hub.Fields{
			"user_id":      "u1",
			"display_name": "Alice",
			"datetime":     now,
		},
	})
	f := next(t, rec)
	assert.Equal(t, TypeUserOnline, f.t)
	assert.True(t, f.target(&fakeSession{key: "any", userID: "other"}))
	// 本人のコネクションには自分のオンライン通知を送らない
	assert.False(t, f.target(&fakeSession{key: "c1", userID: "u1"}))
	if assert.IsType(t, &presenceBody{}, f.body) {
		b := f.body.(*presenceBody)
		assert.Equal(t, "u1", b.UserID)
		assert.Equal(t, "Alice", b.DisplayName)
		assert.Equal(t, now, b.Timestamp)
	}

	h.Publish(hub.Message{
		Name: event.UserReconnected,
		Fields: hub.Fields{
			"user_id":     "u1",
			"conn_key":    "c2",
			"connections": 2,
			"targets":     []string{"c1", "c2"},
		},
	})
	f = next(t, rec)
	assert.Equal(t, TypeUserReconnected, f.t)
	assert.True(t, f.target(&fakeSession{key: "c1", userID: "u1"}))
	assert.False(t, f.target(&fakeSession{key: "c3", userID: "u1"}))
}

func TestService_MessageReceived(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	m := &model.Message{
		ID:       uuid.Must(uuid.NewV7()),
		ChatID:   "room1",
		SenderID: "u1",
		Content:  "hello",
		Kind:     model.MessageKindImage,
		Media:    "/media/a.png",
		Status:   model.DeliveryStatusDelivered,
	}
	h.Publish(hub.Message{
		Name: event.MessageReceived,
		Fields: hub.Fields{
			"room_id": "room1",
			"message": m,
			"sender":  model.UserFragment{ID: "u1", DisplayName: "Alice", ProfilePic: "avatars/u1.png"},
			"targets": []string{"c1", "c2"},
		},
	})

	f := next(t, rec)
	assert.Equal(t, TypeMessageReceived, f.t)
	assert.True(t, f.target(&fakeSession{key: "c2"}))
	assert.False(t, f.target(&fakeSession{key: "c3"}))
	if assert.IsType(t, &messageBody{}, f.body) {
		b := f.body.(*messageBody)
		assert.Equal(t, "https://cdn.example.com/media/a.png", b.Media)
		assert.Equal(t, "https://cdn.example.com/avatars/u1.png", b.Sender.ProfilePic)
		assert.Equal(t, "hello", b.Content)
	}
	// 発行元の値は書き換えられない
	assert.Equal(t, "/media/a.png", m.Media)
}

func TestService_MessageDelivered(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	id := uuid.Must(uuid.NewV7())
	h.Publish(hub.Message{
		Name: event.MessageDelivered,
		Fields: hub.Fields{
			"conn_key":   "c1",
			"message_id": id,
			"chat_id":    "room1",
			"status":     model.DeliveryStatusDelivered,
			"datetime":   time.Now(),
		},
	})

	f := next(t, rec)
	assert.Equal(t, TypeMessageDelivered, f.t)
	assert.True(t, f.target(&fakeSession{key: "c1", userID: "u1"}))
	assert.False(t, f.target(&fakeSession{key: "c2", userID: "u1"}))
	if assert.IsType(t, &deliveredBody{}, f.body) {
		assert.Equal(t, id, f.body.(*deliveredBody).MessageID)
	}
}

func TestService_MessageRead(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	id := uuid.Must(uuid.NewV7())
	h.Publish(hub.Message{
		Name: event.MessageRead,
		Fields: hub.Fields{
			"room_id":    "room1",
			"message_id": id,
			"user_id":    "u2",
			"datetime":   time.Now(),
			"targets":    []string{"c1"},
		},
	})
	f := next(t, rec)
	assert.Equal(t, TypeMessageReadConfirmation, f.t)
	b, err := json.Marshal(f.body)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, id.String(), m["messageId"])
	assert.NotContains(t, m, "count")

	h.Publish(hub.Message{
		Name: event.MessagesBulkRead,
		Fields: hub.Fields{
			"room_id":  "room1",
			"user_id":  "u2",
			"count":    3,
			"datetime": time.Now(),
			"targets":  []string{"c1"},
		},
	})
	f = next(t, rec)
	assert.Equal(t, TypeMessagesBulkRead, f.t)
	b, err = json.Marshal(f.body)
	require.NoError(t, err)
	m = nil
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "messageId")
	assert.EqualValues(t, 3, m["count"])
	assert.Equal(t, "u2", m["userId"])
}

func TestService_CallStatusUpdated(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	c := call.Call{ID: uuid.Must(uuid.NewV7()), Status: call.StatusConnecting, InitiatorID: "u1", CalleeID: "u2"}
	h.Publish(hub.Message{
		Name: event.CallStatusUpdated,
		Fields: hub.Fields{
			"call":            c,
			"user_id":         "u2",
			"except_conn_key": "c2a",
		},
	})

	f := next(t, rec)
	assert.Equal(t, TypeCallStatusUpdate, f.t)
	assert.False(t, f.target(&fakeSession{key: "c2a", userID: "u2"}))
	assert.True(t, f.target(&fakeSession{key: "c2b", userID: "u2"}))
	assert.False(t, f.target(&fakeSession{key: "c1", userID: "u1"}))
	if assert.IsType(t, &callBody{}, f.body) {
		b := f.body.(*callBody)
		assert.True(t, b.AnsweredElsewhere)
		assert.Equal(t, c.ID, b.ID)
	}
}

func TestService_CallIncoming(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	c := call.Call{ID: uuid.Must(uuid.NewV7()), Kind: call.KindVideo, Status: call.StatusRinging, InitiatorID: "u1", CalleeID: "u2"}
	h.Publish(hub.Message{
		Name: event.CallIncoming,
		Fields: hub.Fields{
			"call":    c,
			"caller":  model.UserFragment{ID: "u1", DisplayName: "Alice", ProfilePic: "p.png"},
			"user_id": "u2",
		},
	})

	f := next(t, rec)
	assert.Equal(t, TypeCallIncoming, f.t)
	assert.True(t, f.target(&fakeSession{key: "x", userID: "u2"}))
	assert.False(t, f.target(&fakeSession{key: "y", userID: "u1"}))
	if assert.IsType(t, &callBody{}, f.body) {
		b := f.body.(*callBody)
		require.NotNil(t, b.Caller)
		assert.Equal(t, "https://cdn.example.com/p.png", b.Caller.ProfilePic)
	}
}

func TestService_CallEnded(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	c := call.Call{ID: uuid.Must(uuid.NewV7()), Status: call.StatusMissed, InitiatorID: "u1", CalleeID: "u2"}
	h.Publish(hub.Message{
		Name: event.CallEnded,
		Fields: hub.Fields{
			"call":     c,
			"user_ids": []string{"u1", "u2"},
			"reason":   call.ReasonNoAnswer,
		},
	})

	f := next(t, rec)
	assert.Equal(t, TypeCallEnded, f.t)
	assert.True(t, f.target(&fakeSession{userID: "u1"}))
	assert.True(t, f.target(&fakeSession{userID: "u2"}))
	assert.False(t, f.target(&fakeSession{userID: "u3"}))
	if assert.IsType(t, &callBody{}, f.body) {
		assert.Equal(t, call.ReasonNoAnswer, f.body.(*callBody).Reason)
	}
}

func TestService_CallSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind call.SignalKind
		key  string
	}{
		{call.SignalOffer, "offer"},
		{call.SignalAnswer, "answer"},
		{call.SignalICECandidate, "candidate"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			h, rec := setup(t)

			id := uuid.Must(uuid.NewV7())
			payload := json.RawMessage(`{"sdp":"v=0"}`)
			h.Publish(hub.Message{
				Name: event.CallSignal,
				Fields: hub.Fields{
					"call_id":      id,
					"kind":         string(tt.kind),
					"from_user_id": "u1",
					"user_id":      "u2",
					"payload":      payload,
				},
			})

			f := next(t, rec)
			assert.Equal(t, "webrtc:"+string(tt.kind), f.t)
			assert.True(t, f.target(&fakeSession{userID: "u2"}))
			assert.False(t, f.target(&fakeSession{userID: "u1"}))
			if assert.IsType(t, map[string]interface{}{}, f.body) {
				b := f.body.(map[string]interface{})
				assert.Equal(t, id, b["callId"])
				assert.Equal(t, "u1", b["fromUserId"])
				assert.Equal(t, payload, b[tt.key])
			}
		})
	}
}

func TestService_Ordering(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	const n = 50
	for i := 0; i < n; i++ {
		topic := event.UserTyping
		if i%2 == 1 {
			topic = event.UserStoppedTyping
		}
		h.Publish(hub.Message{
			Name: topic,
			Fields: hub.Fields{
				"room_id": "room1",
				"user":    model.UserFragment{ID: "u1"},
				"targets": []string{"c1"},
			},
		})
	}
	for i := 0; i < n; i++ {
		f := next(t, rec)
		if i%2 == 0 {
			assert.Equal(t, TypeUserTyping, f.t)
		} else {
			assert.Equal(t, TypeUserStoppedTyping, f.t)
		}
	}
}

func TestService_RecoversFromBrokenEvent(t *testing.T) {
	t.Parallel()
	h, rec := setup(t)

	h.Publish(hub.Message{
		Name:   event.MessageReceived,
		Fields: hub.Fields{"room_id": "room1"},
	})
	h.Publish(hub.Message{
		Name: event.UserOffline,
		Fields: hub.Fields{
			"user_id":  "u1",
			"datetime": time.Now(),
		},
	})

	f := next(t, rec)
	assert.Equal(t, TypeUserOffline, f.t)
}

func TestService_Close(t *testing.T) {
	t.Parallel()
	h := hub.New()
	rec := &recorder{frames: make(chan frame, 2000)}
	ns := NewService(h, zap.NewNop(), rec, mediaurl.NewResolver("https://cdn.example.com"))

	for i := 0; i < 1500; i++ {
		h.Publish(hub.Message{
			Name:   event.UserOffline,
			Fields: hub.Fields{"user_id": "u1", "datetime": time.Now()},
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ns.Close()
		ns.Close()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "close did not return")
	}

	// 停止後の発行は配送されずブロックもしない
	n := len(rec.frames)
	h.Publish(hub.Message{
		Name:   event.UserOffline,
		Fields: hub.Fields{"user_id": "u2", "datetime": time.Now()},
	})
	assert.Equal(t, n, len(rec.frames))
}
