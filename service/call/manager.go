package call

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/leandro-lugaresi/hub"
	"github.com/lthibault/jitterbug/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/model"
)

var (
	activeCallsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hibiki",
		Name:      "active_calls",
	}, []string{"status"})
	finishedCallsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Name:      "calls_finished_total",
	}, []string{"status"})
)

// Presence 着信先のオンライン判定
type Presence interface {
	IsOnline(userID string) bool
}

// Config 通話マネージャーの設定
type Config struct {
	// RingTimeout 呼び出しのタイムアウト
	RingTimeout time.Duration
	// StaleThreshold この時間を超えてRINGING/CONNECTINGのままの通話を失敗にします
	StaleThreshold time.Duration
	// SweepInterval 停滞通話の掃除間隔
	SweepInterval time.Duration
}

// DefaultConfig デフォルト設定
func DefaultConfig() Config {
	return Config{
		RingTimeout:    30 * time.Second,
		StaleThreshold: 5 * time.Minute,
		SweepInterval:  30 * time.Second,
	}
}

type activeCall struct {
	Call
	timer *time.Timer
}

// Manager 通話マネージャー
//
// 通話の状態遷移とユーザーごとの通話中状態を1つのロックで管理します。
// タイマーと掃除処理もロック内で現在の状態を確認してから遷移させます。
type Manager struct {
	presence Presence
	hub      *hub.Hub
	logger   *zap.Logger
	config   Config
	now      func() time.Time

	mu        sync.Mutex
	calls     map[uuid.UUID]*activeCall
	userCalls map[string]uuid.UUID

	closed    bool
	closeOnce sync.Once
	stop      chan struct{}
	done      sync.WaitGroup

	// offlineMuは他のロックを取得している間には取得しません
	offlineMu      sync.Mutex
	offlineUsers   []string
	offlineArrived chan struct{}
}

// NewManager 通話マネージャーを生成します
func NewManager(presence Presence, hub *hub.Hub, logger *zap.Logger, config Config) *Manager {
	def := DefaultConfig()
	if config.RingTimeout <= 0 {
		config.RingTimeout = def.RingTimeout
	}
	if config.StaleThreshold <= 0 {
		config.StaleThreshold = def.StaleThreshold
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = def.SweepInterval
	}
	return &Manager{
		presence:  presence,
		hub:       hub,
		logger:    logger.Named("call"),
		config:    config,
		now:       time.Now,
		calls:     map[uuid.UUID]*activeCall{},
		userCalls: map[string]uuid.UUID{},
		stop:      make(chan struct{}),

		offlineArrived: make(chan struct{}, 1),
	}
}

// Start 停滞通話の掃除と、オフラインになったユーザーの通話終了処理を開始します
func (m *Manager) Start() {
	sub := m.hub.Subscribe(100, event.UserOffline)
	m.done.Add(3)
	go m.sweepLoop()
	go m.offlineLoop(sub)
	go m.offlineWorker()
}

// Close バックグラウンド処理を停止し、全てのタイマーを止めます
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		m.done.Wait()

		m.mu.Lock()
		defer m.mu.Unlock()
		m.closed = true
		for _, c := range m.calls {
			c.timer.Stop()
		}
	})
}

// CreateCall 通話を発信します
//
// 種類と相手の検証、両参加者の通話中チェック、着信先のオンラインチェックを行い、
// 両参加者を通話中にしてから着信先の全コネクションにCallIncomingを発行します。
func (m *Manager) CreateCall(initiator model.UserFragment, calleeID string, kind Kind, chatID string) (Call, error) {
	if !kind.Valid() {
		return Call{}, ErrInvalidCallType
	}
	if initiator.ID == calleeID {
		return Call{}, ErrSelfCall
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isBusy(initiator.ID) || m.isBusy(calleeID) {
		return Call{}, ErrUserBusy
	}
	if !m.presence.IsOnline(calleeID) {
		return Call{}, ErrUserOffline
	}

	c := &activeCall{
		Call: Call{
			ID:          uuid.Must(uuid.NewV7()),
			Kind:        kind,
			InitiatorID: initiator.ID,
			CalleeID:    calleeID,
			ChatID:      chatID,
			StartedAt:   m.now(),
		},
	}
	m.setStatus(c, StatusInitiating)
	m.calls[c.ID] = c
	m.userCalls[initiator.ID] = c.ID
	m.userCalls[calleeID] = c.ID

	id := c.ID
	c.timer = time.AfterFunc(m.config.RingTimeout, func() { m.ringTimeout(id) })
	m.setStatus(c, StatusRinging)

	m.logger.Debug("call created",
		zap.Stringer("callId", c.ID), zap.String("initiator", c.InitiatorID), zap.String("callee", c.CalleeID))
	m.hub.Publish(hub.Message{
		Name: event.CallIncoming,
		Fields: hub.Fields{
			"call":    c.Call,
			"caller":  initiator,
			"user_id": calleeID,
		},
	})
	return c.Call, nil
}

// Accept 着信に応答します
//
// RINGINGの通話に着信先のユーザーのみが応答できます。
// 同じユーザーによるCONNECTING/CONNECTEDの通話への重複応答は何もせず成功します。
// connKeyは応答したコネクションで、同じユーザーの他のコネクションにはCallStatusUpdatedが発行されます。
func (m *Manager) Accept(callID uuid.UUID, accepterID, connKey string) (Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[callID]
	if !ok {
		return Call{}, ErrCallNotFound
	}
	if !c.IsParticipant(accepterID) || c.InitiatorID == accepterID {
		return Call{}, ErrNotParticipant
	}
	switch c.Status {
	case StatusRinging:
	case StatusConnecting, StatusConnected:
		return c.Call, nil
	default:
		return Call{}, ErrInvalidCallState
	}

	c.timer.Stop()
	m.setStatus(c, StatusConnecting)

	m.hub.Publish(hub.Message{
		Name: event.CallAccepted,
		Fields: hub.Fields{
			"call":    c.Call,
			"user_id": c.InitiatorID,
		},
	})
	m.hub.Publish(hub.Message{
		Name: event.CallStatusUpdated,
		Fields: hub.Fields{
			"call":            c.Call,
			"user_id":         accepterID,
			"except_conn_key": connKey,
		},
	})
	return c.Call, nil
}

// Reject 着信を拒否します
//
// RINGINGの通話のみ拒否できます。相手の参加者にCallRejectedを発行します。
func (m *Manager) Reject(callID uuid.UUID, rejecterID string) (Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[callID]
	if !ok {
		return Call{}, ErrCallNotFound
	}
	if !c.IsParticipant(rejecterID) {
		return Call{}, ErrNotParticipant
	}
	if c.Status != StatusRinging {
		return Call{}, ErrInvalidCallState
	}

	m.finish(c, StatusRejected, ReasonRejected)
	m.hub.Publish(hub.Message{
		Name: event.CallRejected,
		Fields: hub.Fields{
			"call":    c.Call,
			"user_id": c.Other(rejecterID),
		},
	})
	return c.Call, nil
}

// Signal WebRTCシグナリングメッセージを相手の全コネクションに中継します
//
// payloadは検証せずそのまま中継します。answerを受け取るとCONNECTEDに遷移します。
func (m *Manager) Signal(callID uuid.UUID, fromID, toID string, kind SignalKind, payload json.RawMessage) (Call, error) {
	if !kind.Valid() {
		return Call{}, ErrInvalidSignal
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[callID]
	if !ok {
		return Call{}, ErrCallNotFound
	}
	if !c.IsParticipant(fromID) || c.Other(fromID) != toID {
		return Call{}, ErrNotParticipant
	}

	if kind == SignalAnswer && c.Status == StatusConnecting {
		now := m.now()
		c.ConnectedAt = &now
		m.setStatus(c, StatusConnected)
	}

	m.hub.Publish(hub.Message{
		Name: event.CallSignal,
		Fields: hub.Fields{
			"call_id":      c.ID,
			"kind":         string(kind),
			"from_user_id": fromID,
			"user_id":      toID,
			"payload":      payload,
		},
	})
	return c.Call, nil
}

// End 通話を終了します
//
// 終了状態でない全ての通話を参加者が終了できます。相手の参加者にCallEndedを発行します。
func (m *Manager) End(callID uuid.UUID, enderID, reason string) (Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[callID]
	if !ok {
		return Call{}, ErrCallNotFound
	}
	if !c.IsParticipant(enderID) {
		return Call{}, ErrNotParticipant
	}
	if len(reason) == 0 {
		reason = ReasonEnded
	}

	m.finish(c, StatusEnded, reason)
	m.hub.Publish(hub.Message{
		Name: event.CallEnded,
		Fields: hub.Fields{
			"call":     c.Call,
			"user_ids": []string{c.Other(enderID)},
			"reason":   reason,
		},
	})
	return c.Call, nil
}

// GetCall 進行中の通話を返します
func (m *Manager) GetCall(callID uuid.UUID) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return Call{}, false
	}
	return c.Call, true
}

// GetUserCall 指定したユーザーの進行中の通話を返します
func (m *Manager) GetUserCall(userID string) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.userCalls[userID]
	if !ok {
		return Call{}, false
	}
	return m.calls[id].Call, true
}

// IsUserBusy 指定したユーザーが終了していない通話を持っているかどうか
func (m *Manager) IsUserBusy(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isBusy(userID)
}

// IsUserInCall 指定したユーザーが接続済みの通話中かどうか
func (m *Manager) IsUserInCall(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.userCalls[userID]
	return ok && m.calls[id].Status == StatusConnected
}

// GetAllActiveCalls 進行中の全ての通話を発信日時順に返します
func (m *Manager) GetAllActiveCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Call, 0, len(m.calls))
	for _, c := range m.calls {
		result = append(result, c.Call)
	}
	slices.SortFunc(result, func(a, b Call) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return result
}

// Stats 進行中の通話の集計を返します
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Active:   len(m.calls),
		ByKind:   map[Kind]int{KindAudio: 0, KindVideo: 0},
		ByStatus: map[Status]int{},
	}
	for _, c := range m.calls {
		s.ByKind[c.Kind]++
		s.ByStatus[c.Status]++
	}
	return s
}

func (m *Manager) isBusy(userID string) bool {
	_, ok := m.userCalls[userID]
	return ok
}

func (m *Manager) setStatus(c *activeCall, s Status) {
	if len(c.Status) > 0 && !c.Status.Terminal() {
		activeCallsGauge.WithLabelValues(string(c.Status)).Dec()
	}
	c.Status = s
	if s.Terminal() {
		finishedCallsCounter.WithLabelValues(string(s)).Inc()
	} else {
		activeCallsGauge.WithLabelValues(string(s)).Inc()
	}
}

// finish 終了状態に遷移させて後始末をします。m.muを取得した状態で呼び出すこと
func (m *Manager) finish(c *activeCall, s Status, reason string) {
	now := m.now()
	c.EndedAt = &now
	c.EndReason = reason
	if c.ConnectedAt != nil {
		c.Duration = int64(now.Sub(*c.ConnectedAt) / time.Second)
	}
	m.setStatus(c, s)
	m.cleanup(c.ID)
	m.logger.Debug("call finished",
		zap.Stringer("callId", c.ID), zap.String("status", string(s)), zap.String("reason", reason))
}

// cleanup 通話をインデックスから削除し、参加者の通話中状態を解除します。何度呼んでも安全です
func (m *Manager) cleanup(callID uuid.UUID) {
	c, ok := m.calls[callID]
	if !ok {
		return
	}
	c.timer.Stop()
	delete(m.calls, callID)
	for _, userID := range c.participants() {
		if m.userCalls[userID] == callID {
			delete(m.userCalls, userID)
		}
	}
}

func (m *Manager) ringTimeout(callID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[callID]
	if m.closed || !ok || c.Status != StatusRinging {
		return
	}
	m.finish(c, StatusMissed, ReasonNoAnswer)
	m.hub.Publish(hub.Message{
		Name: event.CallEnded,
		Fields: hub.Fields{
			"call":     c.Call,
			"user_ids": c.participants(),
			"reason":   ReasonNoAnswer,
		},
	})
}

func (m *Manager) sweepLoop() {
	defer m.done.Done()
	t := jitterbug.New(m.config.SweepInterval, &jitterbug.Norm{Stdev: m.config.SweepInterval / 10})
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			if n := m.sweep(); n > 0 {
				m.logger.Info("stale calls swept", zap.Int("count", n))
			}
		}
	}
}

// sweep 停滞した通話をFAILEDにして後始末します。処理した件数を返します
func (m *Manager) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var stale []*activeCall
	for _, c := range m.calls {
		if c.Status != StatusRinging && c.Status != StatusConnecting {
			continue
		}
		if now.Sub(c.StartedAt) > m.config.StaleThreshold {
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		m.finish(c, StatusFailed, ReasonTimeout)
		m.hub.Publish(hub.Message{
			Name: event.CallEnded,
			Fields: hub.Fields{
				"call":     c.Call,
				"user_ids": c.participants(),
				"reason":   ReasonTimeout,
			},
		})
	}
	return len(stale)
}

// offlineLoop UserOfflineを受け取ってofflineWorkerに渡します
//
// 発行元のRegistryはロックを保持したままPublishするため、
// このループではRegistryやManagerのロックを取得してはいけません。
func (m *Manager) offlineLoop(sub hub.Subscription) {
	defer m.done.Done()
	for {
		select {
		case <-m.stop:
			event.Unsubscribe(m.hub, sub)
			return
		case msg, ok := <-sub.Receiver:
			if !ok {
				return
			}
			userID, ok := msg.Fields["user_id"].(string)
			if !ok {
				continue
			}
			m.offlineMu.Lock()
			m.offlineUsers = append(m.offlineUsers, userID)
			m.offlineMu.Unlock()
			select {
			case m.offlineArrived <- struct{}{}:
			default:
			}
		}
	}
}

func (m *Manager) offlineWorker() {
	defer m.done.Done()
	for {
		select {
		case <-m.stop:
			return
		case <-m.offlineArrived:
			m.offlineMu.Lock()
			users := m.offlineUsers
			m.offlineUsers = nil
			m.offlineMu.Unlock()
			for _, userID := range users {
				m.endCallOfOfflineUser(userID)
			}
		}
	}
}

func (m *Manager) endCallOfOfflineUser(userID string) {
	c, ok := m.GetUserCall(userID)
	// 切断後すぐに再接続していれば通話を維持します
	if !ok || m.presence.IsOnline(userID) {
		return
	}
	if _, err := m.End(c.ID, userID, ReasonDisconnected); err != nil && !errors.Is(err, ErrCallNotFound) {
		m.logger.Warn("failed to end call of offline user", zap.Error(err), zap.String("userId", userID))
	}
}
