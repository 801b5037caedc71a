package model

import (
	"time"

	"github.com/gofrs/uuid"
)

// ChatLatestMessage チャットの最新メッセージ
type ChatLatestMessage struct {
	ChatID    string    `gorm:"type:varchar(128);not null;primaryKey"`
	MessageID uuid.UUID `gorm:"type:char(36);not null"`
	DateTime  time.Time `gorm:"precision:6;index"`
}

// TableName ChatLatestMessage構造体のテーブル名
func (*ChatLatestMessage) TableName() string {
	return "chat_latest_messages"
}
