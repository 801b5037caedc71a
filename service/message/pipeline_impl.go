package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vd "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofrs/uuid"
	"github.com/leandro-lugaresi/hub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/repository"
	"github.com/hibiki-social/hibiki/service/room"
)

var (
	messagesDeliveredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hibiki",
		Name:      "messages_delivered_total",
	})
	messageFailuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Name:      "message_failures_total",
	}, []string{"stage"})
)

type pipeline struct {
	MR repository.MessageRepository
	CR repository.ChatRepository
	B  *room.Broker
	H  *hub.Hub
	L  *zap.Logger
}

// NewPipeline メッセージ配信パイプラインを生成します
func NewPipeline(mr repository.MessageRepository, cr repository.ChatRepository, broker *room.Broker, hub *hub.Hub, logger *zap.Logger) Pipeline {
	return &pipeline{
		MR: mr,
		CR: cr,
		B:  broker,
		H:  hub,
		L:  logger.Named("message_pipeline"),
	}
}

func (args *SendArgs) validate() error {
	if len(args.ChatID) == 0 {
		return ErrChatIDRequired
	}
	if err := room.ValidateRoomID(args.ChatID); err != nil {
		return err
	}
	if len(args.Kind) == 0 {
		args.Kind = model.MessageKindText
	}
	if !args.Kind.Valid() {
		return ErrInvalidKind
	}
	// メディア付きメッセージは本文が空でもよい
	if len(args.Media) == 0 && vd.Validate(strings.TrimSpace(args.Content), vd.Required) != nil {
		return ErrEmptyContent
	}
	if vd.Validate(args.Content, vd.RuneLength(0, MaxContentLength)) != nil {
		return ErrContentTooLong
	}
	return nil
}

func (p *pipeline) Send(ctx context.Context, args SendArgs) (*Delivery, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}

	// 保存
	m, err := p.MR.SaveMessage(ctx, repository.SaveMessageArgs{
		ChatID:    args.ChatID,
		SenderID:  args.Sender.UserID,
		Content:   args.Content,
		Kind:      args.Kind,
		Media:     args.Media,
		ReplyToID: args.ReplyToID,
	})
	if err != nil {
		messageFailuresCounter.WithLabelValues("save").Inc()
		if repository.IsArgError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to SaveMessage: %w", err)
	}

	// 最新メッセージの更新 メッセージは既に保存されているので失敗しても続行
	if err := p.CR.SetLatestMessage(ctx, m.ChatID, m.ID, m.CreatedAt); err != nil {
		messageFailuresCounter.WithLabelValues("latest").Inc()
		p.L.Warn("failed to SetLatestMessage", zap.Error(err), zap.String("chatId", m.ChatID), zap.Stringer("messageId", m.ID))
	}

	// ルームへの配信
	m.Status = model.DeliveryStatusDelivered
	p.B.Broadcast(m.ChatID, event.MessageReceived, hub.Fields{
		"message": m,
		"sender":  args.Sender.User(),
	})
	messagesDeliveredCounter.Inc()

	// 送信者のコネクションへの配信確認
	now := time.Now()
	p.H.Publish(hub.Message{
		Name: event.MessageDelivered,
		Fields: hub.Fields{
			"conn_key":   args.Sender.Key,
			"message_id": m.ID,
			"chat_id":    m.ChatID,
			"status":     m.Status,
			"datetime":   now,
		},
	})

	return &Delivery{
		Success:   true,
		MessageID: m.ID,
		Status:    m.Status,
		Timestamp: now,
	}, nil
}

func (p *pipeline) MarkRead(ctx context.Context, messageID uuid.UUID, userID string) (*ReadReceipt, error) {
	if messageID == uuid.Nil {
		return nil, repository.ErrNilID
	}

	m, changed, err := p.MR.MarkMessageRead(ctx, messageID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrNilID), repository.IsArgError(err):
			return nil, err
		default:
			return nil, fmt.Errorf("failed to MarkMessageRead: %w", err)
		}
	}

	receipt := &ReadReceipt{
		MessageID: m.ID,
		ChatID:    m.ChatID,
		UserID:    userID,
		Changed:   changed,
	}
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			receipt.ReadAt = r.ReadAt
			break
		}
	}
	if !changed {
		return receipt, nil
	}

	p.B.Broadcast(m.ChatID, event.MessageRead, hub.Fields{
		"message_id": m.ID,
		"user_id":    userID,
		"datetime":   receipt.ReadAt,
	})
	return receipt, nil
}

func (p *pipeline) MarkAllRead(ctx context.Context, chatID, userID string) (int, error) {
	if len(chatID) == 0 {
		return 0, ErrChatIDRequired
	}
	if err := room.ValidateRoomID(chatID); err != nil {
		return 0, err
	}

	unread, err := p.MR.GetUnreadMessages(ctx, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to GetUnreadMessages: %w", err)
	}
	if len(unread) == 0 {
		return 0, nil
	}

	ids := lo.Map(unread, func(m *model.Message, _ int) uuid.UUID { return m.ID })
	count, err := p.MR.MarkMessagesRead(ctx, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to MarkMessagesRead: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	p.B.Broadcast(chatID, event.MessagesBulkRead, hub.Fields{
		"user_id":  userID,
		"count":    count,
		"datetime": time.Now(),
	})
	return count, nil
}
