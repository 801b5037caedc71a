package ws

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/blendle/zapdriver"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/service/call"
	msgsvc "github.com/hibiki-social/hibiki/service/message"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/service/signaling"
)

// 受信イベントタイプ
const (
	eventJoinChat        = "join_chat"
	eventLeaveChat       = "leave_chat"
	eventSendMessage     = "send_message"
	eventTyping          = "typing"
	eventMessageRead     = "message_read"
	eventMarkAllRead     = "mark_all_read"
	eventCallInitiate    = "call:initiate"
	eventCallAccept      = "call:accept"
	eventCallReject      = "call:reject"
	eventCallEnd         = "call:end"
	eventWebRTCOffer     = "webrtc:offer"
	eventWebRTCAnswer    = "webrtc:answer"
	eventWebRTCCandidate = "webrtc:ice-candidate"
	eventPing            = "ping"
)

var eventContexts = map[string]string{
	eventJoinChat:    "join_chat_failed",
	eventLeaveChat:   "leave_chat_failed",
	eventSendMessage: "message_send_failed",
	eventTyping:      "typing_failed",
	eventMessageRead: "message_read_failed",
	eventMarkAllRead: "mark_all_read_failed",
}

var wsEventsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hibiki",
	Name:      "ws_events_total",
}, []string{"type", "result"})

type handlerFunc func(s *session, body []byte) (interface{}, error)

func (s *Streamer) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		eventJoinChat:        s.handleJoinChat,
		eventLeaveChat:       s.handleLeaveChat,
		eventSendMessage:     s.handleSendMessage,
		eventTyping:          s.handleTyping,
		eventMessageRead:     s.handleMessageRead,
		eventMarkAllRead:     s.handleMarkAllRead,
		eventCallInitiate:    s.handleCallInitiate,
		eventCallAccept:      s.handleCallRequest(signaling.ContextAccept, s.signaling.Accept),
		eventCallReject:      s.handleCallRequest(signaling.ContextReject, s.signaling.Reject),
		eventCallEnd:         s.handleCallRequest(signaling.ContextEnd, s.signaling.End),
		eventWebRTCOffer:     s.handleSignal(call.SignalOffer),
		eventWebRTCAnswer:    s.handleSignal(call.SignalAnswer),
		eventWebRTCCandidate: s.handleSignal(call.SignalICECandidate),
		eventPing:            s.handlePing,
	}
}

// dispatch 受信したイベントを処理します
//
// 受信形式は {"type": string, "body": object, "ack": string?} です。
// ackが指定された場合、成否にかかわらず1度だけackイベントを返します。
func (s *Streamer) dispatch(sess *session, data []byte) {
	if !gjson.ValidBytes(data) {
		sess.sendEvent(TypeError, ErrorBody{Message: errBadRequest.Error(), Context: "invalid_event", Code: CodeValidation})
		return
	}
	parsed := gjson.ParseBytes(data)
	eventType := parsed.Get("type").String()
	r := newResponder(sess, parsed.Get("ack").String())

	defer func() {
		if rec := recover(); rec != nil {
			wsEventsCounter.WithLabelValues(eventType, "panic").Inc()
			s.logger.Error(fmt.Sprintf("panic while handling %s: %v", eventType, rec),
				zapdriver.ErrorReport(runtime.Caller(0)),
				zap.String("connKey", sess.key),
				zap.String("userId", sess.UserID()),
				zap.ByteString("stack", debug.Stack()))
			sess.sendEvent(TypeServerError, ErrorBody{Message: internalErrorMessage, Context: eventType, Code: CodeInternal})
			r.fail(ErrorBody{Message: internalErrorMessage, Context: eventType, Code: CodeInternal})
		}
	}()

	h, ok := s.handlers[eventType]
	if !ok {
		wsEventsCounter.WithLabelValues("unknown", "error").Inc()
		body := ErrorBody{Message: fmt.Sprintf("unknown event: %s", eventType), Context: "unknown_event", Code: CodeValidation}
		sess.sendEvent(TypeError, body)
		r.fail(body)
		return
	}

	body := []byte(parsed.Get("body").Raw)
	if len(body) == 0 {
		body = []byte("{}")
	}

	result, err := h(sess, body)
	if err != nil {
		wsEventsCounter.WithLabelValues(eventType, "error").Inc()
		eb := s.errorBody(sess, eventType, err)
		sess.sendEvent(TypeError, eb)
		r.fail(eb)
		return
	}
	wsEventsCounter.WithLabelValues(eventType, "ok").Inc()
	r.succeed(result)
}

func (s *Streamer) errorBody(sess *session, eventType string, err error) ErrorBody {
	code, msg := classify(err)
	ctx := errorContext(eventType, err)
	if code == CodeInternal {
		s.logger.Error("failed to handle event",
			zap.Error(err),
			zap.String("type", eventType),
			zap.String("context", ctx),
			zap.String("connKey", sess.key),
			zap.String("userId", sess.UserID()))
	}
	return ErrorBody{Message: msg, Context: ctx, Code: code}
}

func bind(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err.Error())
	}
	return nil
}

type chatRequest struct {
	ChatID string `json:"chatId"`
}

func (s *Streamer) handleJoinChat(sess *session, body []byte) (interface{}, error) {
	var req chatRequest
	if err := bind(body, &req); err != nil {
		return nil, err
	}
	joined, err := s.broker.Join(sess.key, req.ChatID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"chatId":  req.ChatID,
		"joined":  joined,
		"members": s.broker.MemberCount(req.ChatID),
	}, nil
}

func (s *Streamer) handleLeaveChat(sess *session, body []byte) (interface{}, error) {
	var req chatRequest
	if err := bind(body, &req); err != nil {
		return nil, err
	}
	left, err := s.broker.Leave(sess.key, req.ChatID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"chatId": req.ChatID,
		"left":   left,
	}, nil
}

type sendMessageRequest struct {
	ChatID  string            `json:"chatId"`
	Content string            `json:"content"`
	Kind    model.MessageKind `json:"kind"`
	Media   string            `json:"media"`
	ReplyTo *uuid.UUID        `json:"replyTo"`
}

func (s *Streamer) handleSendMessage(sess *session, body []byte) (interface{}, error) {
	var req sendMessageRequest
	if err := bind(body, &req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return s.messages.Send(ctx, msgsvc.SendArgs{
		Sender:    sess.info,
		ChatID:    req.ChatID,
		Content:   req.Content,
		Kind:      req.Kind,
		Media:     req.Media,
		ReplyToID: req.ReplyTo,
	})
}

type typingRequest struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

func (s *Streamer) handleTyping(sess *session, body []byte) (interface{}, error) {
	var req typingRequest
	if err := bind(body, &req); err != nil {
		return nil, err
	}
	throttled, err := s.typing.Update(sess.info, req.ChatID, req.IsTyping)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"throttled": throttled}, nil
}

type messageReadRequest struct {
	MessageID uuid.UUID `json:"messageId"`
}

func (s *Streamer) handleMessageRead(sess *session, body []byte) (interface{}, error) {
	var req messageReadRequest
	if err := bind(body, &req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return s.messages.MarkRead(ctx, req.MessageID, sess.UserID())
}

func (s *Streamer) handleMarkAllRead(sess *session, body []byte) (interface{}, error) {
	var req chatRequest
	if err := bind(body, &req); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	count, err := s.messages.MarkAllRead(ctx, req.ChatID, sess.UserID())
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"chatId": req.ChatID,
		"count":  count,
	}, nil
}

func (s *Streamer) handleCallInitiate(sess *session, body []byte) (interface{}, error) {
	var req signaling.InitiateRequest
	if err := bind(body, &req); err != nil {
		return nil, &signaling.Error{Context: signaling.ContextInitiate, Err: err}
	}
	c, err := s.signaling.Initiate(sess.info, req)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"call": c}, nil
}

func (s *Streamer) handleCallRequest(errCtx string, f func(presence.Connection, signaling.CallRequest) (call.Call, error)) handlerFunc {
	return func(sess *session, body []byte) (interface{}, error) {
		var req signaling.CallRequest
		if err := bind(body, &req); err != nil {
			return nil, &signaling.Error{Context: errCtx, Err: err}
		}
		c, err := f(sess.info, req)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"call": c}, nil
	}
}

func (s *Streamer) handleSignal(kind call.SignalKind) handlerFunc {
	return func(sess *session, body []byte) (interface{}, error) {
		var req signaling.SignalRequest
		if err := bind(body, &req); err != nil {
			return nil, &signaling.Error{Context: signaling.ContextFor(kind), Err: err}
		}
		c, err := s.signaling.Signal(sess.info, kind, req)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"callId": c.ID, "status": c.Status}, nil
	}
}

func (s *Streamer) handlePing(sess *session, _ []byte) (interface{}, error) {
	now := time.Now()
	sess.sendEvent(TypePong, map[string]interface{}{"timestamp": now})
	return map[string]interface{}{"timestamp": now}, nil
}
