package room

import (
	"errors"
	"maps"
	"sync"

	vd "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/leandro-lugaresi/hub"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/utils/set"
	"github.com/hibiki-social/hibiki/utils/validator"
)

var (
	// ErrInvalidRoom ルームIDが空または不正です
	ErrInvalidRoom = errors.New("invalid room id")
	// ErrUnknownConnection コネクションが登録されていません
	ErrUnknownConnection = errors.New("unknown connection")
)

// MaxRoomIDLength ルームIDの最大長
const MaxRoomIDLength = 128

// ValidateRoomID ルームIDを検証します
func ValidateRoomID(roomID string) error {
	if err := vd.Validate(roomID, vd.Required, vd.RuneLength(1, MaxRoomIDLength), validator.NoSpaceOrControl); err != nil {
		return ErrInvalidRoom
	}
	return nil
}

// Broker ルームブローカー
//
// ルームのメンバーシップとコネクション側のルーム集合を常に一致させます。
// ロック順序は Broker.mu → presence.Registry の内部ロックです。
type Broker struct {
	registry *presence.Registry
	hub      *hub.Hub
	logger   *zap.Logger

	mu      sync.Mutex
	members map[string]*set.Ordered[string]
}

// NewBroker ルームブローカーを生成します
func NewBroker(registry *presence.Registry, hub *hub.Hub, logger *zap.Logger) *Broker {
	return &Broker{
		registry: registry,
		hub:      hub,
		logger:   logger.Named("room"),
		members:  map[string]*set.Ordered[string]{},
	}
}

// Join コネクションをルームに参加させます
//
// 既に参加している場合は何もせずfalseを返します。
// 新規参加の場合は参加者以外のメンバーにRoomJoinedを発行します。
func (b *Broker) Join(connKey, roomID string) (joined bool, err error) {
	if err := ValidateRoomID(roomID); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.registry.Connection(connKey)
	if !ok {
		return false, ErrUnknownConnection
	}

	members, ok := b.members[roomID]
	if !ok {
		members = set.NewOrdered[string]()
		b.members[roomID] = members
	}
	if !members.Add(connKey) {
		return false, nil
	}
	b.registry.AddRoom(connKey, roomID)

	targets := members.Values()
	targets = targets[:len(targets)-1]
	if len(targets) > 0 {
		b.hub.Publish(hub.Message{
			Name: event.RoomJoined,
			Fields: hub.Fields{
				"room_id":  roomID,
				"conn_key": connKey,
				"user":     conn.User(),
				"targets":  targets,
			},
		})
	}
	return true, nil
}

// Leave コネクションをルームから退出させます
//
// 参加していない場合は何もせずfalseを返します。
func (b *Broker) Leave(connKey, roomID string) (left bool, err error) {
	if err := ValidateRoomID(roomID); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.registry.Connection(connKey)
	if !ok {
		return false, ErrUnknownConnection
	}
	return b.leave(conn, roomID), nil
}

func (b *Broker) leave(conn presence.Connection, roomID string) bool {
	members, ok := b.members[roomID]
	if !ok || !members.Remove(conn.Key) {
		return false
	}
	b.registry.RemoveRoom(conn.Key, roomID)
	if members.Len() == 0 {
		delete(b.members, roomID)
		return true
	}

	b.hub.Publish(hub.Message{
		Name: event.RoomLeft,
		Fields: hub.Fields{
			"room_id":  roomID,
			"conn_key": conn.Key,
			"user":     conn.User(),
			"targets":  members.Values(),
		},
	})
	return true
}

// Disconnect コネクションを全てのルームから退出させ、レジストリから削除します
func (b *Broker) Disconnect(connKey string) (conn presence.Connection, toOffline bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.registry.Connection(connKey)
	if !ok {
		return presence.Connection{}, false
	}
	for _, roomID := range b.registry.Rooms(connKey) {
		b.leave(conn, roomID)
	}
	return b.registry.Unregister(connKey)
}

// Broadcast ルームの全メンバーにイベントを発行します
//
// fieldsにはroom_idとtargetsが追加されます。メンバーがいない場合は何もしません。
// 発行した宛先数を返します。
func (b *Broker) Broadcast(roomID, topic string, fields hub.Fields) int {
	return b.BroadcastExcept(roomID, topic, fields, "")
}

// BroadcastExcept 指定したコネクションを除くルームの全メンバーにイベントを発行します
func (b *Broker) BroadcastExcept(roomID, topic string, fields hub.Fields, exceptConnKey string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.members[roomID]
	if !ok {
		return 0
	}
	targets := make([]string, 0, members.Len())
	for key := range members.All() {
		if key != exceptConnKey {
			targets = append(targets, key)
		}
	}
	if len(targets) == 0 {
		return 0
	}

	f := make(hub.Fields, len(fields)+2)
	maps.Copy(f, fields)
	f["room_id"] = roomID
	f["targets"] = targets
	b.hub.Publish(hub.Message{Name: topic, Fields: f})
	return len(targets)
}

// Members ルームのメンバーのコネクションキーを参加順に返します
func (b *Broker) Members(roomID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.members[roomID]
	if !ok {
		return []string{}
	}
	return members.Values()
}

// MemberCount ルームのメンバー数
func (b *Broker) MemberCount(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.members[roomID]
	if !ok {
		return 0
	}
	return members.Len()
}

// IsMember コネクションがルームに参加しているかどうか
func (b *Broker) IsMember(connKey, roomID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.members[roomID]
	return ok && members.Contains(connKey)
}

// Registry このブローカーが使用するコネクションレジストリ
func (b *Broker) Registry() *presence.Registry {
	return b.registry
}
