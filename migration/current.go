package migration

import (
	"github.com/go-gormigrate/gormigrate/v2"

	"github.com/hibiki-social/hibiki/model"
)

// Migrations 全てのデータベースマイグレーション
//
// 新たなマイグレーションを行う場合は、このスライスの末尾に必ず追加すること
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		v1(), // メッセージと既読
		v2(), // チャット最新メッセージ
	}
}

// AllTables 最新のスキーマの全テーブルモデル
//
// 最新のスキーマの全テーブルのモデルの構造体を記述すること
func AllTables() []interface{} {
	return []interface{}{
		&model.Message{},
		&model.MessageRead{},
		&model.ChatLatestMessage{},
	}
}
