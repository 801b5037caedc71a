// Package mediaurl 送信ペイロード中のメディア相対パスを絶対URLに変換します
package mediaurl

import (
	"net/url"
	"strings"

	"github.com/hibiki-social/hibiki/model"
)

// Resolver メディアURLリゾルバ
//
// 変換は純粋関数で、引数の値を書き換えずにコピーを返します。
type Resolver struct {
	base string
}

// NewResolver originを基準に相対パスを解決するリゾルバを生成します
func NewResolver(origin string) *Resolver {
	return &Resolver{base: strings.TrimRight(origin, "/")}
}

// URL 相対パスを絶対URLに変換します
// 空文字列、絶対URL、data URI、プロトコル相対URLはそのまま返します。
func (r *Resolver) URL(p string) string {
	if r == nil || p == "" || r.base == "" {
		return p
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "data:") || strings.HasPrefix(p, "blob:") {
		return p
	}
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	return r.base + "/" + strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
}

// User ユーザー情報のprofilePic, coverPhotoを変換します
func (r *Resolver) User(u model.UserFragment) model.UserFragment {
	u.ProfilePic = r.URL(u.ProfilePic)
	u.CoverPhoto = r.URL(u.CoverPhoto)
	return u
}

// Users 複数のユーザー情報を変換します
func (r *Resolver) Users(us []model.UserFragment) []model.UserFragment {
	if us == nil {
		return nil
	}
	out := make([]model.UserFragment, len(us))
	for i, u := range us {
		out[i] = r.User(u)
	}
	return out
}

// Message メッセージのmediaを変換します
func (r *Resolver) Message(m *model.Message) *model.Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Media = r.URL(m.Media)
	if m.ReadBy != nil {
		c.ReadBy = append([]model.MessageRead(nil), m.ReadBy...)
	}
	return &c
}

// Messages 複数のメッセージを変換します
func (r *Resolver) Messages(ms []*model.Message) []*model.Message {
	if ms == nil {
		return nil
	}
	out := make([]*model.Message, len(ms))
	for i, m := range ms {
		out[i] = r.Message(m)
	}
	return out
}

// Resolvable 独自の形状を持つペイロードが実装するインターフェイス
type Resolvable interface {
	ResolveMedia(r *Resolver) any
}

// Payload 既知の形状のペイロードを変換します。未知の形状はそのまま返します
func (r *Resolver) Payload(v any) any {
	switch p := v.(type) {
	case nil:
		return nil
	case Resolvable:
		return p.ResolveMedia(r)
	case model.UserFragment:
		return r.User(p)
	case *model.UserFragment:
		if p == nil {
			return p
		}
		u := r.User(*p)
		return &u
	case []model.UserFragment:
		return r.Users(p)
	case *model.Message:
		return r.Message(p)
	case []*model.Message:
		return r.Messages(p)
	default:
		return v
	}
}
