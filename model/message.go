package model

import (
	"time"

	"github.com/gofrs/uuid"
)

// MessageKind メッセージの種類
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindImage MessageKind = "image"
	MessageKindVideo MessageKind = "video"
	MessageKindFile  MessageKind = "file"
)

// Valid 既知の種類かどうか
func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindImage, MessageKindVideo, MessageKindFile:
		return true
	}
	return false
}

// DeliveryStatus メッセージの配信状態
type DeliveryStatus string

const (
	// DeliveryStatusSent 永続化済み
	DeliveryStatusSent DeliveryStatus = "sent"
	// DeliveryStatusDelivered ルームに配信済み
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// Message メッセージ
//
// Contentは常に平文です。保存時の暗号化はリポジトリ実装が行います。
type Message struct {
	ID        uuid.UUID      `gorm:"type:char(36);not null;primaryKey" json:"id"`
	ChatID    string         `gorm:"type:varchar(128);not null;index:idx_messages_chat_id_created_at,priority:1" json:"chatId"`
	SenderID  string         `gorm:"type:varchar(64);not null" json:"senderId"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Kind      MessageKind    `gorm:"type:varchar(16);not null;default:text" json:"kind"`
	Media     string         `gorm:"type:text" json:"media,omitempty"`
	ReplyToID *uuid.UUID     `gorm:"type:char(36)" json:"replyTo,omitempty"`
	Status    DeliveryStatus `gorm:"-" json:"status"`
	ReadBy    []MessageRead  `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"readBy"`
	CreatedAt time.Time      `gorm:"precision:6;index:idx_messages_chat_id_created_at,priority:2" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"precision:6" json:"updatedAt"`
}

// TableName Message構造体のテーブル名
func (*Message) TableName() string {
	return "messages"
}

// IsReadBy 指定したユーザーが既読かどうか
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MessageRead メッセージ既読レコード
type MessageRead struct {
	MessageID uuid.UUID `gorm:"type:char(36);not null;primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(64);not null;primaryKey" json:"userId"`
	ReadAt    time.Time `gorm:"precision:6" json:"readAt"`
}

// TableName MessageRead構造体のテーブル名
func (*MessageRead) TableName() string {
	return "message_reads"
}
