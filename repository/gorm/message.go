package gorm

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/repository"
)

// SaveMessage implements MessageRepository interface.
func (repo *Repository) SaveMessage(ctx context.Context, args repository.SaveMessageArgs) (*model.Message, error) {
	if len(args.ChatID) == 0 {
		return nil, repository.ArgError("args.ChatID", "ChatID is required")
	}
	if len(args.SenderID) == 0 {
		return nil, repository.ArgError("args.SenderID", "SenderID is required")
	}
	if len(args.Kind) == 0 {
		args.Kind = model.MessageKindText
	}
	if !args.Kind.Valid() {
		return nil, repository.ArgError("args.Kind", "unknown message kind")
	}

	sealed, err := repo.cipher.Seal(args.Content)
	if err != nil {
		return nil, err
	}
	m := &model.Message{
		ID:        uuid.Must(uuid.NewV7()),
		ChatID:    args.ChatID,
		SenderID:  args.SenderID,
		Content:   sealed,
		Kind:      args.Kind,
		Media:     args.Media,
		ReplyToID: args.ReplyToID,
	}
	if err := repo.db.WithContext(ctx).Omit("ReadBy").Create(m).Error; err != nil {
		return nil, err
	}

	m.Content = args.Content
	m.Status = model.DeliveryStatusSent
	m.ReadBy = []model.MessageRead{}
	return m, nil
}

// GetMessage implements MessageRepository interface.
func (repo *Repository) GetMessage(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	if id == uuid.Nil {
		return nil, repository.ErrNotFound
	}
	return repo.getMessage(repo.db.WithContext(ctx), id)
}

func (repo *Repository) getMessage(tx *gorm.DB, id uuid.UUID) (*model.Message, error) {
	var m model.Message
	if err := tx.Preload("ReadBy").First(&m, &model.Message{ID: id}).Error; err != nil {
		return nil, convertError(err)
	}
	if err := repo.open(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageRead implements MessageRepository interface.
func (repo *Repository) MarkMessageRead(ctx context.Context, messageID uuid.UUID, userID string) (m *model.Message, changed bool, err error) {
	if messageID == uuid.Nil {
		return nil, false, repository.ErrNilID
	}
	if len(userID) == 0 {
		return nil, false, repository.ArgError("userID", "userID is required")
	}

	err = repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Message{}).Where(&model.Message{ID: messageID}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repository.ErrNotFound
		}

		result := tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.MessageRead{MessageID: messageID, UserID: userID, ReadAt: time.Now()})
		if result.Error != nil {
			return result.Error
		}
		changed = result.RowsAffected > 0

		m, err = repo.getMessage(tx, messageID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return m, changed, nil
}

// GetUnreadMessages implements MessageRepository interface.
func (repo *Repository) GetUnreadMessages(ctx context.Context, chatID, userID string) ([]*model.Message, error) {
	messages := make([]*model.Message, 0)
	if len(chatID) == 0 || len(userID) == 0 {
		return messages, nil
	}
	err := repo.db.
		WithContext(ctx).
		Preload("ReadBy").
		Where("chat_id = ? AND sender_id <> ?", chatID, userID).
		Where("NOT EXISTS (?)", repo.db.
			Table("message_reads").
			Select("1").
			Where("message_reads.message_id = messages.id AND message_reads.user_id = ?", userID)).
		Order("created_at").
		Find(&messages).
		Error
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if err := repo.open(m); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// MarkMessagesRead implements MessageRepository interface.
func (repo *Repository) MarkMessagesRead(ctx context.Context, messageIDs []uuid.UUID, userID string) (int, error) {
	messageIDs = lo.Uniq(lo.Without(messageIDs, uuid.Nil))
	if len(messageIDs) == 0 {
		return 0, nil
	}
	if len(userID) == 0 {
		return 0, repository.ArgError("userID", "userID is required")
	}

	now := time.Now()
	reads := lo.Map(messageIDs, func(id uuid.UUID, _ int) *model.MessageRead {
		return &model.MessageRead{MessageID: id, UserID: userID, ReadAt: now}
	})
	result := repo.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reads)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (repo *Repository) open(m *model.Message) error {
	plain, err := repo.cipher.Open(m.Content)
	if err != nil {
		repo.logger.Error("failed to decrypt message content", zap.Stringer("messageId", m.ID), zap.Error(err))
		return err
	}
	m.Content = plain
	m.Status = model.DeliveryStatusDelivered
	if m.ReadBy == nil {
		m.ReadBy = []model.MessageRead{}
	}
	return nil
}
