// Package signaling 通話イベントと通話マネージャーの橋渡し
//
// 受信したイベントの形式を検証して call.Manager を呼び出し、
// 失敗した場合は操作ごとのコンテキスト付きのエラーに変換します。
// 中継先は常に相手ユーザーの全コネクションです。
package signaling

import (
	"encoding/json"

	vd "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/utils/validator"
)

// エラーコンテキスト
const (
	ContextInitiate     = "call_initiate_failed"
	ContextAccept       = "call_accept_failed"
	ContextReject       = "call_reject_failed"
	ContextEnd          = "call_end_failed"
	ContextOffer        = "webrtc_offer_failed"
	ContextAnswer       = "webrtc_answer_failed"
	ContextICECandidate = "webrtc_ice_candidate_failed"
)

// Error 操作のコンテキスト付きエラー
type Error struct {
	Context string
	Err     error
}

func (e *Error) Error() string {
	return e.Context + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(context string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Context: context, Err: err}
}

// InitiateRequest call:initiate
type InitiateRequest struct {
	CalleeID string `json:"calleeId"`
	CallType string `json:"callType"`
	ChatID   string `json:"chatId,omitempty"`
}

func (r InitiateRequest) Validate() error {
	return vd.ValidateStruct(&r,
		vd.Field(&r.CalleeID, vd.Required),
		vd.Field(&r.CallType, vd.Required, vd.In(string(call.KindAudio), string(call.KindVideo))),
	)
}

// CallRequest call:accept, call:reject, call:end
type CallRequest struct {
	CallID uuid.UUID `json:"callId"`
	Reason string    `json:"reason,omitempty"`
}

func (r CallRequest) Validate() error {
	return vd.ValidateStruct(&r,
		vd.Field(&r.CallID, vd.Required, validator.NotNilUUID),
		vd.Field(&r.Reason, vd.RuneLength(0, 200)),
	)
}

// SignalRequest webrtc:offer, webrtc:answer, webrtc:ice-candidate
//
// 種類に応じてOffer, Answer, Candidateのいずれかを指定します。
type SignalRequest struct {
	CallID       uuid.UUID       `json:"callId"`
	TargetUserID string          `json:"targetUserId"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// Payload 種類に対応するペイロード
func (r *SignalRequest) Payload(kind call.SignalKind) json.RawMessage {
	switch kind {
	case call.SignalOffer:
		return r.Offer
	case call.SignalAnswer:
		return r.Answer
	case call.SignalICECandidate:
		return r.Candidate
	}
	return nil
}

func (r SignalRequest) validate(kind call.SignalKind) error {
	if err := vd.ValidateStruct(&r,
		vd.Field(&r.CallID, vd.Required, validator.NotNilUUID),
		vd.Field(&r.TargetUserID, vd.Required),
	); err != nil {
		return err
	}
	return vd.Errors{
		string(kind): vd.Validate([]byte(r.Payload(kind)), vd.Required),
	}.Filter()
}

// Handlers シグナリングハンドラ
type Handlers struct {
	cm *call.Manager
}

// NewHandlers シグナリングハンドラを生成します
func NewHandlers(cm *call.Manager) *Handlers {
	return &Handlers{cm: cm}
}

// Initiate 発信します
func (h *Handlers) Initiate(conn presence.Connection, req InitiateRequest) (call.Call, error) {
	if err := req.Validate(); err != nil {
		return call.Call{}, wrap(ContextInitiate, err)
	}
	c, err := h.cm.CreateCall(conn.User(), req.CalleeID, call.Kind(req.CallType), req.ChatID)
	return c, wrap(ContextInitiate, err)
}

// Accept 応答します
func (h *Handlers) Accept(conn presence.Connection, req CallRequest) (call.Call, error) {
	if err := req.Validate(); err != nil {
		return call.Call{}, wrap(ContextAccept, err)
	}
	c, err := h.cm.Accept(req.CallID, conn.UserID, conn.Key)
	return c, wrap(ContextAccept, err)
}

// Reject 拒否します
func (h *Handlers) Reject(conn presence.Connection, req CallRequest) (call.Call, error) {
	if err := req.Validate(); err != nil {
		return call.Call{}, wrap(ContextReject, err)
	}
	c, err := h.cm.Reject(req.CallID, conn.UserID)
	return c, wrap(ContextReject, err)
}

// End 終了します
func (h *Handlers) End(conn presence.Connection, req CallRequest) (call.Call, error) {
	if err := req.Validate(); err != nil {
		return call.Call{}, wrap(ContextEnd, err)
	}
	c, err := h.cm.End(req.CallID, conn.UserID, req.Reason)
	return c, wrap(ContextEnd, err)
}

// Signal SDP/ICEを相手ユーザーに中継します
func (h *Handlers) Signal(conn presence.Connection, kind call.SignalKind, req SignalRequest) (call.Call, error) {
	ctx := ContextFor(kind)
	if !kind.Valid() {
		return call.Call{}, wrap(ctx, call.ErrInvalidSignal)
	}
	if err := req.validate(kind); err != nil {
		return call.Call{}, wrap(ctx, err)
	}
	c, err := h.cm.Signal(req.CallID, conn.UserID, req.TargetUserID, kind, req.Payload(kind))
	return c, wrap(ctx, err)
}

// ContextFor シグナリングの種類に対応するエラーコンテキスト
func ContextFor(kind call.SignalKind) string {
	switch kind {
	case call.SignalAnswer:
		return ContextAnswer
	case call.SignalICECandidate:
		return ContextICECandidate
	default:
		return ContextOffer
	}
}
