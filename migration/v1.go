package migration

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// v1 メッセージと既読
func v1() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "1",
		Migrate: func(db *gorm.DB) error {
			return db.AutoMigrate(&v1Message{}, &v1MessageRead{})
		},
	}
}

type v1Message struct {
	ID        uuid.UUID  `gorm:"type:char(36);not null;primaryKey"`
	ChatID    string     `gorm:"type:varchar(128);not null;index:idx_messages_chat_id_created_at,priority:1"`
	SenderID  string     `gorm:"type:varchar(64);not null"`
	Content   string     `gorm:"type:text;not null"`
	Kind      string     `gorm:"type:varchar(16);not null;default:text"`
	Media     string     `gorm:"type:text"`
	ReplyToID *uuid.UUID `gorm:"type:char(36)"`
	CreatedAt time.Time  `gorm:"precision:6;index:idx_messages_chat_id_created_at,priority:2"`
	UpdatedAt time.Time  `gorm:"precision:6"`
}

func (*v1Message) TableName() string {
	return "messages"
}

type v1MessageRead struct {
	MessageID uuid.UUID `gorm:"type:char(36);not null;primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;primaryKey"`
	ReadAt    time.Time `gorm:"precision:6"`
}

func (*v1MessageRead) TableName() string {
	return "message_reads"
}
