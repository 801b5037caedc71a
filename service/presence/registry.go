package presence

import (
	"sync"
	"time"

	"github.com/leandro-lugaresi/hub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/utils/set"
)

var (
	onlineUsersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hibiki",
		Name:      "online_users",
	})
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hibiki",
		Name:      "ws_connections",
	})
)

// Connection 1つのWebSocketセッション
type Connection struct {
	Key         string
	UserID      string
	DisplayName string
	ProfilePic  string
	ConnectedAt time.Time
}

// User 送信ペイロード用のユーザー情報
func (c Connection) User() model.UserFragment {
	return model.UserFragment{
		ID:          c.UserID,
		DisplayName: c.DisplayName,
		ProfilePic:  c.ProfilePic,
	}
}

type connection struct {
	Connection
	rooms *set.Ordered[string]
}

// Registry コネクションレジストリ
//
// ユーザーごとのコネクション集合とオンライン状態を管理します。
// すべての変更は1つのクリティカルセクション内で行われ、
// オンライン/オフラインの判定もその中で確定します。
type Registry struct {
	hub    *hub.Hub
	logger *zap.Logger

	mu    sync.Mutex
	conns map[string]*connection
	users map[string]*set.Ordered[string]
}

// NewRegistry コネクションレジストリを生成します
func NewRegistry(hub *hub.Hub, logger *zap.Logger) *Registry {
	return &Registry{
		hub:    hub,
		logger: logger.Named("presence"),
		conns:  map[string]*connection{},
		users:  map[string]*set.Ordered[string]{},
	}
}

// Register コネクションを登録します
//
// ユーザーの最初のコネクションであればUserOnlineを、既にオンラインであればUserReconnectedを発行します。
// 同じキーの二重登録は何もしません。
func (r *Registry) Register(c Connection) (toOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.Key]; ok {
		return false
	}
	if c.ConnectedAt.IsZero() {
		c.ConnectedAt = time.Now()
	}
	r.conns[c.Key] = &connection{Connection: c, rooms: set.NewOrdered[string]()}
	connectionsGauge.Inc()

	keys, ok := r.users[c.UserID]
	if !ok {
		keys = set.NewOrdered[string]()
		r.users[c.UserID] = keys
	}
	keys.Add(c.Key)

	if keys.Len() == 1 {
		onlineUsersGauge.Inc()
		r.hub.Publish(hub.Message{
			Name: event.UserOnline,
			Fields: hub.Fields{
				"user_id":      c.UserID,
				"display_name": c.DisplayName,
				"datetime":     c.ConnectedAt,
			},
		})
		return true
	}

	r.hub.Publish(hub.Message{
		Name: event.UserReconnected,
		Fields: hub.Fields{
			"user_id":     c.UserID,
			"conn_key":    c.Key,
			"connections": keys.Len(),
			"targets":     keys.Values(),
		},
	})
	return false
}

// Unregister コネクションを削除します
//
// ユーザーの最後のコネクションであればUserOfflineを1度だけ発行します。
// ルームからの退出はroom.Broker.Disconnectが行います。
func (r *Registry) Unregister(key string) (c Connection, toOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[key]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, key)
	connectionsGauge.Dec()
	if conn.rooms.Len() > 0 {
		r.logger.Warn("connection unregistered while still in rooms",
			zap.String("connKey", key), zap.Strings("rooms", conn.rooms.Values()))
	}

	keys := r.users[conn.UserID]
	keys.Remove(key)
	if keys.Len() > 0 {
		return conn.Connection, false
	}

	delete(r.users, conn.UserID)
	onlineUsersGauge.Dec()
	r.hub.Publish(hub.Message{
		Name: event.UserOffline,
		Fields: hub.Fields{
			"user_id":  conn.UserID,
			"datetime": time.Now(),
		},
	})
	return conn.Connection, true
}

// IsOnline 指定したユーザーがオンラインかどうか
func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	return ok
}

// ConnectionsFor 指定したユーザーのコネクションキーを登録順に返します
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys, ok := r.users[userID]
	if !ok {
		return []string{}
	}
	return keys.Values()
}

// Connection 指定したキーのコネクションを返します
func (r *Registry) Connection(key string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[key]
	if !ok {
		return Connection{}, false
	}
	return conn.Connection, true
}

// OnlineUserIDs オンラインなユーザーのIDを返します
func (r *Registry) OnlineUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// AddRoom コネクション側のルーム集合に追加します。room.Broker専用
func (r *Registry) AddRoom(key, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[key]
	if !ok {
		return false
	}
	return conn.rooms.Add(roomID)
}

// RemoveRoom コネクション側のルーム集合から削除します。room.Broker専用
func (r *Registry) RemoveRoom(key, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[key]
	if !ok {
		return false
	}
	return conn.rooms.Remove(roomID)
}

// Rooms コネクションが参加しているルームを参加順に返します
func (r *Registry) Rooms(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[key]
	if !ok {
		return []string{}
	}
	return conn.rooms.Values()
}
