package ctxkey

// CtxKey context.Context用のキータイプ
type CtxKey int

const (
	// UserID ユーザーIDキー (string)
	UserID CtxKey = iota
	// UserDisplayName ユーザー表示名キー (string)
	UserDisplayName
	// UserProfilePic ユーザーアイコンのパスキー (string)
	UserProfilePic
)
