package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/router/extension/ctxkey"
	msgsvc "github.com/hibiki-social/hibiki/service/message"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/service/room"
	"github.com/hibiki-social/hibiki/service/signaling"
	"github.com/hibiki-social/hibiki/service/typing"
	"github.com/hibiki-social/hibiki/utils/random"
)

var (
	// ErrAlreadyClosed 既に閉じられています
	ErrAlreadyClosed = errors.New("already closed")
	// ErrBufferIsFull 送信バッファが溢れました
	ErrBufferIsFull = errors.New("buffer is full")
)

// Streamer WebSocketストリーマー
type Streamer struct {
	broker    *room.Broker
	messages  msgsvc.Pipeline
	typing    *typing.Service
	signaling *signaling.Handlers
	logger    *zap.Logger
	handlers  map[string]handlerFunc
	sessions  map[*session]struct{}
	closed    bool
	mu        sync.RWMutex
	active    sync.WaitGroup
}

// NewStreamer WebSocketストリーマーを生成します
func NewStreamer(broker *room.Broker, messages msgsvc.Pipeline, typing *typing.Service, signaling *signaling.Handlers, logger *zap.Logger) *Streamer {
	s := &Streamer{
		broker:    broker,
		messages:  messages,
		typing:    typing,
		signaling: signaling,
		logger:    logger.Named("ws"),
		sessions:  make(map[*session]struct{}),
		closed:    false,
	}
	s.handlers = s.routes()
	return s
}

func (s *Streamer) register(session *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[session] = struct{}{}
	return true
}

func (s *Streamer) unregister(session *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
}

// IterateSessions 全セッションをイテレートします
func (s *Streamer) IterateSessions(f func(session Session)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for session := range s.sessions {
		f(session)
	}
}

// WriteMessage 指定したセッションにメッセージを書き込みます
func (s *Streamer) WriteMessage(t string, body interface{}, targetFunc TargetFunc) {
	m := &rawMessage{
		t:    websocket.TextMessage,
		data: makeMessage(t, body).toJSON(),
	}
	s.mu.RLock()
	for session := range s.sessions {
		if targetFunc(session) {
			if err := session.writeMessage(m); errors.Is(err, ErrBufferIsFull) {
				webSocketDiscardedMessagesTotal.WithLabelValues(t).Inc()
				s.logger.Warn("discard a message because the session's buffer is full",
					zap.String("type", t), zap.String("connKey", session.key),
					zap.String("userId", session.UserID()))
			}
		}
	}
	s.mu.RUnlock()
}

// ServeHTTP http.Handlerインターフェイスの実装
//
// リクエストのコンテキストには認証済みのユーザー情報が格納されている必要があります。
func (s *Streamer) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	if s.closed {
		http.Error(rw, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		s.mu.RUnlock()
		return
	}
	s.active.Add(1)
	s.mu.RUnlock()
	defer s.active.Done()

	userID, _ := r.Context().Value(ctxkey.UserID).(string)
	if len(userID) == 0 {
		http.Error(rw, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	displayName, _ := r.Context().Value(ctxkey.UserDisplayName).(string)
	profilePic, _ := r.Context().Value(ctxkey.UserProfilePic).(string)

	conn, err := upgrader.Upgrade(rw, r, rw.Header())
	if err != nil {
		return
	}

	session := &session{
		key: random.ConnectionKey(),
		info: presence.Connection{
			UserID:      userID,
			DisplayName: displayName,
			ProfilePic:  profilePic,
			ConnectedAt: time.Now(),
		},
		req:      r,
		conn:     conn,
		open:     true,
		streamer: s,
		send:     make(chan *rawMessage, messageBufferSize),
	}
	session.info.Key = session.key

	if !s.register(session) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseServiceRestart, "Server is stopping..."))
		_ = conn.Close()
		return
	}
	s.broker.Registry().Register(session.info)
	s.logger.Debug("connected", zap.String("connKey", session.key), zap.String("userId", userID))

	go session.writeLoop()
	session.readLoop()

	s.broker.Disconnect(session.key)
	s.unregister(session)
	session.close()
	s.logger.Debug("disconnected", zap.String("connKey", session.key), zap.String("userId", userID))
}

// Close ストリーマーを停止します
//
// 全てのセッションを閉じ、各コネクションの切断処理が終わるまで待ちます。
func (s *Streamer) Close() error {
	if err := s.closeSessions(); err != nil {
		return err
	}
	s.active.Wait()
	return nil
}

func (s *Streamer) closeSessions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true

	m := &rawMessage{
		t:    websocket.CloseMessage,
		data: websocket.FormatCloseMessage(websocket.CloseServiceRestart, "Server is stopping..."),
	}
	for session := range s.sessions {
		_ = session.writeMessage(m)
		session.close()
	}
	s.sessions = make(map[*session]struct{})
	return nil
}
