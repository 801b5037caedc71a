//go:generate mockgen -source=$GOFILE -destination=mock_$GOPACKAGE/mock_$GOFILE
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
)

// ChatRepository チャットストア
type ChatRepository interface {
	// SetLatestMessage チャットの最新メッセージを更新します
	//
	// DBによるエラーを返すことがあります。
	SetLatestMessage(ctx context.Context, chatID string, messageID uuid.UUID, at time.Time) error
	// GetLatestMessageID チャットの最新メッセージのIDを取得します
	//
	// 存在しなかった場合、ErrNotFoundを返します。
	// DBによるエラーを返すことがあります。
	GetLatestMessageID(ctx context.Context, chatID string) (uuid.UUID, error)
}
