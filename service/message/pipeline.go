package message

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/service/presence"
)

// MaxContentLength メッセージ本文の最大文字数
const MaxContentLength = 10000

var (
	// ErrChatIDRequired チャットIDが指定されていません
	ErrChatIDRequired = errors.New("chat id is required")
	// ErrEmptyContent 本文が空です
	ErrEmptyContent = errors.New("message content is empty")
	// ErrContentTooLong 本文が長すぎます
	ErrContentTooLong = errors.New("message content is too long")
	// ErrInvalidKind 不明なメッセージの種類です
	ErrInvalidKind = errors.New("invalid message kind")
)

// SendArgs メッセージ送信引数
type SendArgs struct {
	// Sender 送信元のコネクション
	Sender    presence.Connection
	ChatID    string
	Content   string
	Kind      model.MessageKind
	Media     string
	ReplyToID *uuid.UUID
}

// Delivery 送信者への応答
type Delivery struct {
	Success   bool                 `json:"success"`
	MessageID uuid.UUID            `json:"messageId"`
	Status    model.DeliveryStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// ReadReceipt 既読処理の結果
type ReadReceipt struct {
	MessageID uuid.UUID `json:"messageId"`
	ChatID    string    `json:"chatId"`
	UserID    string    `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
	// Changed 新たに既読になった場合true
	Changed bool `json:"changed"`
}

// Pipeline メッセージ配信パイプライン
type Pipeline interface {
	// Send メッセージを保存し、ルームに配信します
	//
	// 成功した場合、送信者への応答とnilを返します。
	// 引数が不正な場合、ErrChatIDRequired, ErrEmptyContent, ErrContentTooLong, ErrInvalidKind
	// またはrepository.ArgumentErrorを返します。
	// 保存に失敗した場合は何も配信せずにエラーを返します。
	Send(ctx context.Context, args SendArgs) (*Delivery, error)
	// MarkRead 指定したユーザーがメッセージを既読にします
	//
	// 既に既読の場合は何も配信せずChanged=falseを返します。
	// 存在しないメッセージを指定した場合、repository.ErrNotFoundを返します。
	// DBによるエラーを返すことがあります。
	MarkRead(ctx context.Context, messageID uuid.UUID, userID string) (*ReadReceipt, error)
	// MarkAllRead チャットの未読メッセージを全て既読にします
	//
	// 新たに既読になった件数を返します。1件以上の場合のみルームに1つの集約イベントを配信します。
	// DBによるエラーを返すことがあります。
	MarkAllRead(ctx context.Context, chatID, userID string) (int, error)
}
