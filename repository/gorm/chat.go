package gorm

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm/clause"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/repository"
)

// SetLatestMessage implements ChatRepository interface.
func (repo *Repository) SetLatestMessage(ctx context.Context, chatID string, messageID uuid.UUID, at time.Time) error {
	if len(chatID) == 0 || messageID == uuid.Nil {
		return repository.ErrNilID
	}
	return repo.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model.ChatLatestMessage{ChatID: chatID, MessageID: messageID, DateTime: at}).
		Error
}

// GetLatestMessageID implements ChatRepository interface.
func (repo *Repository) GetLatestMessageID(ctx context.Context, chatID string) (uuid.UUID, error) {
	if len(chatID) == 0 {
		return uuid.Nil, repository.ErrNotFound
	}
	var l model.ChatLatestMessage
	if err := repo.db.WithContext(ctx).First(&l, &model.ChatLatestMessage{ChatID: chatID}).Error; err != nil {
		return uuid.Nil, convertError(err)
	}
	return l.MessageID, nil
}
