package router

// Config APIサーバー設定
type Config struct {
	// Development 開発モードかどうか
	Development bool
	// Version サーバーバージョン
	Version string
	// Revision サーバーリビジョン
	Revision string
	// AccessLogging アクセスログを記録するかどうか
	AccessLogging bool
	// AllowedOrigins CORSで許可するオリジン (空の場合は全て許可)
	AllowedOrigins []string
	// HandshakeRateLimit IPごとのWebSocketハンドシェイクの秒間許可数 (0以下で無制限)
	HandshakeRateLimit float64
	// HandshakeBurst WebSocketハンドシェイクのバースト許容数
	HandshakeBurst int
}
