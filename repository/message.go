//go:generate mockgen -source=$GOFILE -destination=mock_$GOPACKAGE/mock_$GOFILE
package repository

import (
	"context"

	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/model"
)

// SaveMessageArgs メッセージ保存引数
type SaveMessageArgs struct {
	ChatID    string
	SenderID  string
	Content   string
	Kind      model.MessageKind
	Media     string
	ReplyToID *uuid.UUID
}

// MessageRepository メッセージストア
//
// 実装は保存時の暗号化を内部で行い、呼び出し側には常に平文を返します。
type MessageRepository interface {
	// SaveMessage メッセージを保存します
	//
	// 成功した場合、保存されたメッセージとnilを返します。
	// 引数に問題がある場合、ArgumentErrorを返します。
	// DBによるエラーを返すことがあります。
	SaveMessage(ctx context.Context, args SaveMessageArgs) (*model.Message, error)
	// GetMessage 指定したIDのメッセージを取得します
	//
	// 成功した場合、メッセージとnilを返します。
	// 存在しなかった場合、ErrNotFoundを返します。
	// DBによるエラーを返すことがあります。
	GetMessage(ctx context.Context, id uuid.UUID) (*model.Message, error)
	// MarkMessageRead 指定したユーザーがメッセージを既読にします
	//
	// 新たに既読になった場合changed=trueを返します。既に既読だった場合は何もせずchanged=falseを返します。
	// 存在しなかった場合、ErrNotFoundを返します。
	// DBによるエラーを返すことがあります。
	MarkMessageRead(ctx context.Context, messageID uuid.UUID, userID string) (m *model.Message, changed bool, err error)
	// GetUnreadMessages チャットの、指定したユーザーが未読のメッセージを古い順に取得します
	//
	// ユーザー自身が送信したメッセージは含みません。
	// DBによるエラーを返すことがあります。
	GetUnreadMessages(ctx context.Context, chatID, userID string) ([]*model.Message, error)
	// MarkMessagesRead 指定したメッセージをまとめて既読にします
	//
	// 新たに既読になった件数を返します。
	// DBによるエラーを返すことがあります。
	MarkMessagesRead(ctx context.Context, messageIDs []uuid.UUID, userID string) (int, error)
}
