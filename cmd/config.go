package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hibiki-social/hibiki/repository"
	repogorm "github.com/hibiki-social/hibiki/repository/gorm"
	"github.com/hibiki-social/hibiki/repository/inmemory"
	"github.com/hibiki-social/hibiki/router"
	"github.com/hibiki-social/hibiki/router/auth"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/typing"
	"github.com/hibiki-social/hibiki/utils/cipher"
	"github.com/hibiki-social/hibiki/utils/gormzap"
	"github.com/hibiki-social/hibiki/utils/mediaurl"
)

// Config 設定
type Config struct {
	// DevMode 開発モードかどうか (default: false)
	DevMode bool `mapstructure:"dev" yaml:"dev"`
	// Pprof pprofを有効にするかどうか (default: false)
	Pprof bool `mapstructure:"pprof" yaml:"pprof"`

	// Origin メディアURLの基点となるオリジン (default: http://localhost:3000)
	Origin string `mapstructure:"origin" yaml:"origin"`
	// Port サーバーポート番号 (default: 3000)
	Port int `mapstructure:"port" yaml:"port"`
	// AllowedOrigins CORSで許可するオリジン. 空の場合は全て許可 (default: [])
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
	// ShutdownTimeout シャットダウン待機時間(秒) (default: 10)
	ShutdownTimeout int `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`

	// AccessLog HTTPアクセスログ設定
	AccessLog struct {
		// Enabled 有効かどうか (default: true)
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"accessLog" yaml:"accessLog"`

	// Storage メッセージストレージ設定
	Storage struct {
		// Type ストレージタイプ (default: mariadb)
		// 	mariadb: MariaDB
		// 	memory: インメモリ (再起動で消えます)
		Type string `mapstructure:"type" yaml:"type"`
	} `mapstructure:"storage" yaml:"storage"`

	// MariaDB データベース接続設定
	MariaDB struct {
		// Host ホスト名 (default: 127.0.0.1)
		Host string `mapstructure:"host" yaml:"host"`
		// Port ポート番号 (default: 3306)
		Port int `mapstructure:"port" yaml:"port"`
		// Username ユーザー名 (default: root)
		Username string `mapstructure:"username" yaml:"username"`
		// Password パスワード (default: password)
		Password string `mapstructure:"password" yaml:"password"`
		// Database データベース名 (default: hibiki)
		Database string `mapstructure:"database" yaml:"database"`
		// Connection コネクション設定
		Connection struct {
			// MaxOpen 最大オープン接続数. 0は無制限 (default: 0)
			MaxOpen int `mapstructure:"maxOpen" yaml:"maxOpen"`
			// MaxIdle 最大アイドル接続数 (default: 2)
			MaxIdle int `mapstructure:"maxIdle" yaml:"maxIdle"`
			// LifeTime 待機接続維持時間. 0は無制限 (default: 0)
			LifeTime int `mapstructure:"lifetime" yaml:"lifetime"`
		} `mapstructure:"connection" yaml:"connection"`
	} `mapstructure:"mariadb" yaml:"mariadb"`

	// JWT 接続トークン設定
	JWT struct {
		// Secret HMAC署名鍵 (必須)
		Secret string `mapstructure:"secret" yaml:"secret"`
	} `mapstructure:"jwt" yaml:"jwt"`

	// Encryption メッセージ本文の暗号化設定
	Encryption struct {
		// Secret 暗号鍵. 空の場合は暗号化しません (default: "")
		Secret string `mapstructure:"secret" yaml:"secret"`
	} `mapstructure:"encryption" yaml:"encryption"`

	// Typing 入力中通知設定
	Typing struct {
		// Cooldown 入力開始イベントの最小送信間隔(ミリ秒) (default: 3000)
		Cooldown int `mapstructure:"cooldown" yaml:"cooldown"`
	} `mapstructure:"typing" yaml:"typing"`

	// Call 通話設定
	Call struct {
		// RingTimeout 呼び出しのタイムアウト(秒) (default: 30)
		RingTimeout int `mapstructure:"ringTimeout" yaml:"ringTimeout"`
		// StaleThreshold 停滞した通話を失敗とみなすまでの時間(秒) (default: 300)
		StaleThreshold int `mapstructure:"staleThreshold" yaml:"staleThreshold"`
		// SweepInterval 停滞通話の掃除間隔(秒) (default: 30)
		SweepInterval int `mapstructure:"sweepInterval" yaml:"sweepInterval"`
	} `mapstructure:"call" yaml:"call"`

	// WS WebSocket設定
	WS struct {
		// HandshakeRateLimit IPごとのハンドシェイクの秒間許可数. 0以下で無制限 (default: 5)
		HandshakeRateLimit float64 `mapstructure:"handshakeRateLimit" yaml:"handshakeRateLimit"`
		// HandshakeBurst ハンドシェイクのバースト許容数 (default: 10)
		HandshakeBurst int `mapstructure:"handshakeBurst" yaml:"handshakeBurst"`
	} `mapstructure:"ws" yaml:"ws"`
}

// SetDefaults viperにデフォルト値を設定します
func (c Config) SetDefaults() {
	viper.SetDefault("dev", false)
	viper.SetDefault("pprof", false)
	viper.SetDefault("origin", "http://localhost:3000")
	viper.SetDefault("port", 3000)
	viper.SetDefault("allowedOrigins", []string{})
	viper.SetDefault("shutdownTimeout", 10)
	viper.SetDefault("accessLog.enabled", true)
	viper.SetDefault("storage.type", "mariadb")
	viper.SetDefault("mariadb.host", "127.0.0.1")
	viper.SetDefault("mariadb.port", 3306)
	viper.SetDefault("mariadb.username", "root")
	viper.SetDefault("mariadb.password", "password")
	viper.SetDefault("mariadb.database", "hibiki")
	viper.SetDefault("mariadb.connection.maxOpen", 0)
	viper.SetDefault("mariadb.connection.maxIdle", 2)
	viper.SetDefault("mariadb.connection.lifetime", 0)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("encryption.secret", "")
	viper.SetDefault("typing.cooldown", int(typing.DefaultCooldown/time.Millisecond))
	viper.SetDefault("call.ringTimeout", 30)
	viper.SetDefault("call.staleThreshold", 300)
	viper.SetDefault("call.sweepInterval", 30)
	viper.SetDefault("ws.handshakeRateLimit", 5)
	viper.SetDefault("ws.handshakeBurst", 10)
}

func (c Config) useDatabase() bool {
	return c.Storage.Type != "memory"
}

func (c Config) getDatabase() (*gorm.DB, error) {
	engine, err := gorm.Open(mysql.New(mysql.Config{
		DSN: fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true",
			c.MariaDB.Username,
			c.MariaDB.Password,
			c.MariaDB.Host,
			c.MariaDB.Port,
			c.MariaDB.Database,
		),
	}), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db, err := engine.DB()
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.MariaDB.Connection.MaxOpen)
	db.SetMaxIdleConns(c.MariaDB.Connection.MaxIdle)
	db.SetConnMaxLifetime(time.Duration(c.MariaDB.Connection.LifeTime) * time.Second)
	return engine.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"), nil
}

// getRepository ストレージ設定に応じたリポジトリを生成します
// closeFnは呼び出し側で必ず呼んでください
func (c Config) getRepository(logger *zap.Logger) (repo repository.Repository, init bool, closeFn func(), err error) {
	if !c.useDatabase() {
		logger.Warn("using in-memory storage. messages are lost on shutdown")
		return inmemory.NewRepository(), true, func() {}, nil
	}

	engine, err := c.getDatabase()
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to connect database: %w", err)
	}
	engine.Logger = gormzap.New(logger.Named("gorm"), gormzap.WithParameterizedQueries(!c.DevMode))
	db, err := engine.DB()
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to get *sql.DB: %w", err)
	}

	ci, err := cipher.New(c.Encryption.Secret)
	if err != nil {
		_ = db.Close()
		return nil, false, nil, fmt.Errorf("failed to setup message cipher: %w", err)
	}
	if ci == nil {
		logger.Warn("encryption.secret is empty. message contents are stored as plain text")
	}

	repo, init, err = repogorm.NewGormRepository(engine, ci, logger, true)
	if err != nil {
		_ = db.Close()
		return nil, false, nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	return repo, init, func() { _ = db.Close() }, nil
}

func provideRouterConfig(c *Config) *router.Config {
	return &router.Config{
		Development:        c.DevMode,
		Version:            Version,
		Revision:           Revision,
		AccessLogging:      c.AccessLog.Enabled,
		AllowedOrigins:     c.AllowedOrigins,
		HandshakeRateLimit: c.WS.HandshakeRateLimit,
		HandshakeBurst:     c.WS.HandshakeBurst,
	}
}

func provideCallConfig(c *Config) call.Config {
	return call.Config{
		RingTimeout:    time.Duration(c.Call.RingTimeout) * time.Second,
		StaleThreshold: time.Duration(c.Call.StaleThreshold) * time.Second,
		SweepInterval:  time.Duration(c.Call.SweepInterval) * time.Second,
	}
}

func provideTypingThrottler(c *Config) *typing.Throttler {
	return typing.NewThrottler(time.Duration(c.Typing.Cooldown) * time.Millisecond)
}

func provideMediaResolver(c *Config) *mediaurl.Resolver {
	return mediaurl.NewResolver(c.Origin)
}

func provideVerifier(c *Config) *auth.Verifier {
	return auth.NewVerifier(c.JWT.Secret)
}
