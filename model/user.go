package model

// UserFragment 送信ペイロードに埋め込むユーザー情報
//
// ProfilePic, CoverPhotoは相対パスのまま保持され、送信直前に絶対URLへ変換されます。
type UserFragment struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	ProfilePic  string `json:"profilePic,omitempty"`
	CoverPhoto  string `json:"coverPhoto,omitempty"`
}
