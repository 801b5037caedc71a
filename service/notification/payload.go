package notification

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/utils/mediaurl"
)

// 送信イベントタイプ
const (
	TypeUserOnline              = "user_online"
	TypeUserOffline             = "user_offline"
	TypeUserReconnected         = "user_reconnected"
	TypeUserJoined              = "user_joined"
	TypeUserLeft                = "user_left"
	TypeMessageReceived         = "message_received"
	TypeMessageDelivered        = "message_delivered"
	TypeMessageReadConfirmation = "message_read_confirmation"
	TypeMessagesBulkRead        = "messages_bulk_read"
	TypeUserTyping              = "user_typing"
	TypeUserStoppedTyping       = "user_stopped_typing"
	TypeCallIncoming            = "call:incoming"
	TypeCallAccepted            = "call:accepted"
	TypeCallRejected            = "call:rejected"
	TypeCallEnded               = "call:ended"
	TypeCallStatusUpdate        = "call:status-update"
	TypeCallStats               = "call:stats"
	typeWebRTCPrefix            = "webrtc:"
)

type presenceBody struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Connections int       `json:"connections,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type memberBody struct {
	ChatID  string             `json:"chatId"`
	ConnKey string             `json:"connKey"`
	User    model.UserFragment `json:"user"`
}

func (b *memberBody) ResolveMedia(r *mediaurl.Resolver) any {
	c := *b
	c.User = r.User(b.User)
	return &c
}

type messageBody struct {
	*model.Message
	Sender model.UserFragment `json:"sender"`
}

func (b *messageBody) ResolveMedia(r *mediaurl.Resolver) any {
	return &messageBody{
		Message: r.Message(b.Message),
		Sender:  r.User(b.Sender),
	}
}

type deliveredBody struct {
	MessageID uuid.UUID            `json:"messageId"`
	ChatID    string               `json:"chatId"`
	Status    model.DeliveryStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

type readBody struct {
	MessageID uuid.UUID `json:"messageId"`
	ChatID    string    `json:"chatId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type bulkReadBody struct {
	ChatID    string    `json:"chatId"`
	UserID    string    `json:"userId"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type typingBody struct {
	ChatID string             `json:"chatId"`
	User   model.UserFragment `json:"user"`
}

func (b *typingBody) ResolveMedia(r *mediaurl.Resolver) any {
	c := *b
	c.User = r.User(b.User)
	return &c
}

type callBody struct {
	call.Call
	Caller            *model.UserFragment `json:"caller,omitempty"`
	Reason            string              `json:"reason,omitempty"`
	AnsweredElsewhere bool                `json:"answeredElsewhere,omitempty"`
}

func (b *callBody) ResolveMedia(r *mediaurl.Resolver) any {
	c := *b
	if b.Caller != nil {
		u := r.User(*b.Caller)
		c.Caller = &u
	}
	return &c
}
