package call

import (
	"time"

	"github.com/gofrs/uuid"
)

// Kind 通話の種類
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Valid 既知の種類かどうか
func (k Kind) Valid() bool {
	return k == KindAudio || k == KindVideo
}

// Status 通話の状態
type Status string

const (
	StatusInitiating Status = "INITIATING"
	StatusRinging    Status = "RINGING"
	StatusConnecting Status = "CONNECTING"
	StatusConnected  Status = "CONNECTED"
	StatusEnded      Status = "ENDED"
	StatusRejected   Status = "REJECTED"
	StatusMissed     Status = "MISSED"
	StatusFailed     Status = "FAILED"
)

// Terminal 終了状態かどうか
func (s Status) Terminal() bool {
	switch s {
	case StatusEnded, StatusRejected, StatusMissed, StatusFailed:
		return true
	}
	return false
}

// SignalKind WebRTCシグナリングメッセージの種類
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

// Valid 既知の種類かどうか
func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return true
	}
	return false
}

const (
	// ReasonNoAnswer 呼び出しタイムアウト時の終了理由
	ReasonNoAnswer = "No answer"
	// ReasonTimeout 停滞した通話を掃除した時の終了理由
	ReasonTimeout = "Call timeout"
	// ReasonRejected 拒否時の終了理由
	ReasonRejected = "Call rejected"
	// ReasonEnded 理由が指定されなかった終了の理由
	ReasonEnded = "Call ended"
	// ReasonDisconnected 参加者がオフラインになった時の終了理由
	ReasonDisconnected = "User disconnected"
)

// Call 2人のユーザー間の通話
//
// Managerが返すCallは内部状態のコピーです。
type Call struct {
	ID          uuid.UUID  `json:"callId"`
	Kind        Kind       `json:"callType"`
	Status      Status     `json:"status"`
	InitiatorID string     `json:"initiatorId"`
	CalleeID    string     `json:"calleeId"`
	ChatID      string     `json:"chatId,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	// Duration 通話時間(秒)。接続前に終了した場合は0
	Duration  int64  `json:"duration"`
	EndReason string `json:"endReason,omitempty"`
}

// IsParticipant 指定したユーザーが参加者かどうか
func (c *Call) IsParticipant(userID string) bool {
	return c.InitiatorID == userID || c.CalleeID == userID
}

// Other 指定した参加者の相手を返します
func (c *Call) Other(userID string) string {
	if c.InitiatorID == userID {
		return c.CalleeID
	}
	return c.InitiatorID
}

func (c *Call) participants() []string {
	return []string{c.InitiatorID, c.CalleeID}
}

// Stats 通話の集計
type Stats struct {
	Active   int            `json:"active"`
	ByKind   map[Kind]int   `json:"byType"`
	ByStatus map[Status]int `json:"byStatus"`
}
