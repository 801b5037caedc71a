package typing

import (
	"github.com/leandro-lugaresi/hub"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/service/room"
)

// Service 入力中インジケーター
type Service struct {
	throttler *Throttler
	broker    *room.Broker
}

// NewService 入力中インジケーターを生成します
func NewService(throttler *Throttler, broker *room.Broker) *Service {
	return &Service{throttler: throttler, broker: broker}
}

// Update 入力状態を更新し、間引かれなかった場合は送信元以外のルームメンバーに通知します
func (s *Service) Update(conn presence.Connection, roomID string, typing bool) (throttled bool, err error) {
	if err := room.ValidateRoomID(roomID); err != nil {
		return false, err
	}
	if s.throttler.Observe(conn.UserID, roomID, typing) {
		return true, nil
	}

	topic := event.UserStoppedTyping
	if typing {
		topic = event.UserTyping
	}
	s.broker.BroadcastExcept(roomID, topic, hub.Fields{
		"user": conn.User(),
	}, conn.Key)
	return false, nil
}

// Close 内部のThrottlerを停止します
func (s *Service) Close() {
	s.throttler.Close()
}
