package notification

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/leandro-lugaresi/hub"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/ws"
)

type eventHandler func(ns *Service, ev hub.Message)

var handlerMap = map[string]eventHandler{
	event.UserOnline:        userOnlineHandler,
	event.UserOffline:       userOfflineHandler,
	event.UserReconnected:   userReconnectedHandler,
	event.RoomJoined:        roomMemberHandler(TypeUserJoined),
	event.RoomLeft:          roomMemberHandler(TypeUserLeft),
	event.MessageReceived:   messageReceivedHandler,
	event.MessageDelivered:  messageDeliveredHandler,
	event.MessageRead:       messageReadHandler,
	event.MessagesBulkRead:  messagesBulkReadHandler,
	event.UserTyping:        typingHandler(TypeUserTyping),
	event.UserStoppedTyping: typingHandler(TypeUserStoppedTyping),
	event.CallIncoming:      callIncomingHandler,
	event.CallAccepted:      callAcceptedHandler,
	event.CallStatusUpdated: callStatusUpdatedHandler,
	event.CallRejected:      callRejectedHandler,
	event.CallEnded:         callEndedHandler,
	event.CallSignal:        callSignalHandler,
	event.CallStatsUpdated:  callStatsUpdatedHandler,
}

func targets(ev hub.Message) ws.TargetFunc {
	keys, ok := ev.Fields["targets"].([]string)
	if !ok || len(keys) == 0 {
		return ws.TargetNone()
	}
	return ws.TargetConnections(keys...)
}

func userOnlineHandler(ns *Service, ev hub.Message) {
	ns.send(TypeUserOnline, &presenceBody{
		UserID:      ev.Fields["user_id"].(string),
		DisplayName: ev.Fields["display_name"].(string),
		Timestamp:   ev.Fields["datetime"].(time.Time),
	}, ws.Not(ws.TargetUsers(ev.Fields["user_id"].(string))))
}

func userOfflineHandler(ns *Service, ev hub.Message) {
	ns.send(TypeUserOffline, &presenceBody{
		UserID:    ev.Fields["user_id"].(string),
		Timestamp: ev.Fields["datetime"].(time.Time),
	}, ws.TargetAll())
}

func userReconnectedHandler(ns *Service, ev hub.Message) {
	ns.send(TypeUserReconnected, &presenceBody{
		UserID:      ev.Fields["user_id"].(string),
		Connections: ev.Fields["connections"].(int),
		Timestamp:   time.Now(),
	}, targets(ev))
}

func roomMemberHandler(t string) eventHandler {
	return func(ns *Service, ev hub.Message) {
		ns.send(t, &memberBody{
			ChatID:  ev.Fields["room_id"].(string),
			ConnKey: ev.Fields["conn_key"].(string),
			User:    ev.Fields["user"].(model.UserFragment),
		}, targets(ev))
	}
}

func messageReceivedHandler(ns *Service, ev hub.Message) {
	ns.send(TypeMessageReceived, &messageBody{
		Message: ev.Fields["message"].(*model.Message),
		Sender:  ev.Fields["sender"].(model.UserFragment),
	}, targets(ev))
}

func messageDeliveredHandler(ns *Service, ev hub.Message) {
	ns.send(TypeMessageDelivered, &deliveredBody{
		MessageID: ev.Fields["message_id"].(uuid.UUID),
		ChatID:    ev.Fields["chat_id"].(string),
		Status:    ev.Fields["status"].(model.DeliveryStatus),
		Timestamp: ev.Fields["datetime"].(time.Time),
	}, ws.TargetConnections(ev.Fields["conn_key"].(string)))
}

func messageReadHandler(ns *Service, ev hub.Message) {
	ns.send(TypeMessageReadConfirmation, &readBody{
		MessageID: ev.Fields["message_id"].(uuid.UUID),
		ChatID:    ev.Fields["room_id"].(string),
		UserID:    ev.Fields["user_id"].(string),
		Timestamp: ev.Fields["datetime"].(time.Time),
	}, targets(ev))
}

func messagesBulkReadHandler(ns *Service, ev hub.Message) {
	ns.send(TypeMessagesBulkRead, &bulkReadBody{
		ChatID:    ev.Fields["room_id"].(string),
		UserID:    ev.Fields["user_id"].(string),
		Count:     ev.Fields["count"].(int),
		Timestamp: ev.Fields["datetime"].(time.Time),
	}, targets(ev))
}

func typingHandler(t string) eventHandler {
	return func(ns *Service, ev hub.Message) {
		ns.send(t, &typingBody{
			ChatID: ev.Fields["room_id"].(string),
			User:   ev.Fields["user"].(model.UserFragment),
		}, targets(ev))
	}
}

func callIncomingHandler(ns *Service, ev hub.Message) {
	caller := ev.Fields["caller"].(model.UserFragment)
	ns.send(TypeCallIncoming, &callBody{
		Call:   ev.Fields["call"].(call.Call),
		Caller: &caller,
	}, ws.TargetUsers(ev.Fields["user_id"].(string)))
}

func callAcceptedHandler(ns *Service, ev hub.Message) {
	ns.send(TypeCallAccepted, &callBody{
		Call: ev.Fields["call"].(call.Call),
	}, ws.TargetUsers(ev.Fields["user_id"].(string)))
}

func callStatusUpdatedHandler(ns *Service, ev hub.Message) {
	ns.send(TypeCallStatusUpdate, &callBody{
		Call:              ev.Fields["call"].(call.Call),
		AnsweredElsewhere: true,
	}, ws.And(
		ws.TargetUsers(ev.Fields["user_id"].(string)),
		ws.Not(ws.TargetConnections(ev.Fields["except_conn_key"].(string))),
	))
}

func callRejectedHandler(ns *Service, ev hub.Message) {
	c := ev.Fields["call"].(call.Call)
	ns.send(TypeCallRejected, &callBody{
		Call:   c,
		Reason: c.EndReason,
	}, ws.TargetUsers(ev.Fields["user_id"].(string)))
}

func callEndedHandler(ns *Service, ev hub.Message) {
	ns.send(TypeCallEnded, &callBody{
		Call:   ev.Fields["call"].(call.Call),
		Reason: ev.Fields["reason"].(string),
	}, ws.TargetUsers(ev.Fields["user_ids"].([]string)...))
}

func callSignalHandler(ns *Service, ev hub.Message) {
	kind := call.SignalKind(ev.Fields["kind"].(string))
	key := string(kind)
	if kind == call.SignalICECandidate {
		key = "candidate"
	}
	ns.send(typeWebRTCPrefix+string(kind), map[string]interface{}{
		"callId":     ev.Fields["call_id"].(uuid.UUID),
		"fromUserId": ev.Fields["from_user_id"].(string),
		key:          ev.Fields["payload"].(json.RawMessage),
	}, ws.TargetUsers(ev.Fields["user_id"].(string)))
}

func callStatsUpdatedHandler(ns *Service, ev hub.Message) {
	stats, ok := ev.Fields["stats"].(call.Stats)
	if !ok {
		ns.logger.Warn("invalid call stats event", zap.Any("fields", ev.Fields))
		return
	}
	ns.send(TypeCallStats, stats, ws.TargetAll())
}
