// Package inmemory プロセス内メモリ上のリポジトリ実装
//
// 開発モードとテストで使用します。再起動でデータは失われます。
package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/repository"
)

// Repository リポジトリ実装
type Repository struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*model.Message
	byChat   map[string][]uuid.UUID
	latest   map[string]model.ChatLatestMessage
}

// NewRepository 空のリポジトリを生成します
func NewRepository() repository.Repository {
	return &Repository{
		messages: map[uuid.UUID]*model.Message{},
		byChat:   map[string][]uuid.UUID{},
		latest:   map[string]model.ChatLatestMessage{},
	}
}

// SaveMessage implements MessageRepository interface.
func (r *Repository) SaveMessage(_ context.Context, args repository.SaveMessageArgs) (*model.Message, error) {
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

	now := time.Now()
	m := &model.Message{
		ID:        uuid.Must(uuid.NewV7()),
		ChatID:    args.ChatID,
		SenderID:  args.SenderID,
		Content:   args.Content,
		Kind:      args.Kind,
		Media:     args.Media,
		ReplyToID: args.ReplyToID,
		ReadBy:    []model.MessageRead{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.messages[m.ID] = m
	r.byChat[m.ChatID] = append(r.byChat[m.ChatID], m.ID)
	r.mu.Unlock()

	c := clone(m)
	c.Status = model.DeliveryStatusSent
	return c, nil
}

// GetMessage implements MessageRepository interface.
func (r *Repository) GetMessage(_ context.Context, id uuid.UUID) (*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return stored(m), nil
}

// MarkMessageRead implements MessageRepository interface.
func (r *Repository) MarkMessageRead(_ context.Context, messageID uuid.UUID, userID string) (*model.Message, bool, error) {
	if messageID == uuid.Nil {
		return nil, false, repository.ErrNilID
	}
	if len(userID) == 0 {
		return nil, false, repository.ArgError("userID", "userID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	changed := r.markRead(m, userID, time.Now())
	return stored(m), changed, nil
}

// GetUnreadMessages implements MessageRepository interface.
func (r *Repository) GetUnreadMessages(_ context.Context, chatID, userID string) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Message, 0)
	for _, id := range r.byChat[chatID] {
		m := r.messages[id]
		if m.SenderID == userID || m.IsReadBy(userID) {
			continue
		}
		result = append(result, stored(m))
	}
	return result, nil
}

// MarkMessagesRead implements MessageRepository interface.
func (r *Repository) MarkMessagesRead(_ context.Context, messageIDs []uuid.UUID, userID string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	if len(userID) == 0 {
		return 0, repository.ArgError("userID", "userID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	count := 0
	for _, id := range messageIDs {
		m, ok := r.messages[id]
		if ok && r.markRead(m, userID, now) {
			count++
		}
	}
	return count, nil
}

// SetLatestMessage implements ChatRepository interface.
func (r *Repository) SetLatestMessage(_ context.Context, chatID string, messageID uuid.UUID, at time.Time) error {
	if len(chatID) == 0 || messageID == uuid.Nil {
		return repository.ErrNilID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[chatID] = model.ChatLatestMessage{ChatID: chatID, MessageID: messageID, DateTime: at}
	return nil
}

// GetLatestMessageID implements ChatRepository interface.
func (r *Repository) GetLatestMessageID(_ context.Context, chatID string) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.latest[chatID]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return l.MessageID, nil
}

func (r *Repository) markRead(m *model.Message, userID string, at time.Time) bool {
	if m.IsReadBy(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, model.MessageRead{MessageID: m.ID, UserID: userID, ReadAt: at})
	return true
}

func clone(m *model.Message) *model.Message {
	c := *m
	c.ReadBy = slices.Clone(m.ReadBy)
	if c.ReadBy == nil {
		c.ReadBy = []model.MessageRead{}
	}
	return &c
}

func stored(m *model.Message) *model.Message {
	c := clone(m)
	c.Status = model.DeliveryStatusDelivered
	return c
}
