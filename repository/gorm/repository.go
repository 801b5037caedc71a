package gorm

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hibiki-social/hibiki/migration"
	"github.com/hibiki-social/hibiki/repository"
	"github.com/hibiki-social/hibiki/utils/cipher"
)

// Repository リポジトリ実装
type Repository struct {
	db     *gorm.DB
	cipher *cipher.Cipher
	logger *zap.Logger
}

// NewGormRepository リポジトリ実装を初期化して生成します
// スキーマが初期化された場合は init: true を返します
func NewGormRepository(db *gorm.DB, c *cipher.Cipher, logger *zap.Logger, doMigration bool) (repo repository.Repository, init bool, err error) {
	r := &Repository{
		db:     db,
		cipher: c,
		logger: logger.Named("repository"),
	}
	if doMigration {
		if init, err = migration.Migrate(db); err != nil {
			return nil, false, err
		}
	}
	return r, init, nil
}
