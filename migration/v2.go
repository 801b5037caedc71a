package migration

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// v2 チャット最新メッセージ
func v2() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "2",
		Migrate: func(db *gorm.DB) error {
			return db.AutoMigrate(&v2ChatLatestMessage{})
		},
	}
}

type v2ChatLatestMessage struct {
	ChatID    string    `gorm:"type:varchar(128);not null;primaryKey"`
	MessageID uuid.UUID `gorm:"type:char(36);not null"`
	DateTime  time.Time `gorm:"precision:6;index"`
}

func (*v2ChatLatestMessage) TableName() string {
	return "chat_latest_messages"
}
