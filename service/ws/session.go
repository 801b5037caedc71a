package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hibiki-social/hibiki/service/presence"
)

// Session WebSocketセッション
type Session interface {
	// Key このセッションのコネクションキー
	Key() string
	// UserID このセッションのユーザーID
	UserID() string
}

type session struct {
	key  string
	info presence.Connection

	sync.RWMutex
	req      *http.Request
	conn     *websocket.Conn
	open     bool
	streamer *Streamer
	send     chan *rawMessage
}

func (s *session) readLoop() {
	s.conn.SetReadLimit(maxReadMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		t, m, err := s.conn.ReadMessage()
		if err != nil {
			break
		}

		incWebSocketReadBytesTotal(len(m))

		if t == websocket.BinaryMessage {
			_ = s.writeMessage(&rawMessage{t: websocket.CloseMessage, data: websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "binary message is not supported.")})
			break
		}
		s.streamer.dispatch(s, m)
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}

			if err := s.write(msg.t, msg.data); err != nil {
				return
			}

			if msg.t == websocket.CloseMessage {
				return
			}

		case <-ticker.C:
			_ = s.write(websocket.PingMessage, []byte{})
		}
	}
}

func (s *session) writeMessage(msg *rawMessage) error {
	s.RLock()
	defer s.RUnlock()
	if !s.open {
		return ErrAlreadyClosed
	}

	select {
	case s.send <- msg:
	default:
		return ErrBufferIsFull
	}
	return nil
}

// sendEvent このセッションにのみイベントを送信します
func (s *session) sendEvent(t string, body interface{}) {
	_ = s.writeMessage(&rawMessage{
		t:    websocket.TextMessage,
		data: makeMessage(t, body).toJSON(),
	})
}

func (s *session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	incWebSocketWriteBytesTotal(len(data))
	return nil
}

func (s *session) close() {
	s.Lock()
	defer s.Unlock()
	if !s.open {
		return
	}
	s.open = false
	s.conn.Close()
	close(s.send)
}

// Key implements Session interface.
func (s *session) Key() string {
	return s.key
}

// UserID implements Session interface.
func (s *session) UserID() string {
	return s.info.UserID
}
