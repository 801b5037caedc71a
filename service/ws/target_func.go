package ws

import (
	"github.com/hibiki-social/hibiki/utils/set"
)

// TargetFunc メッセージ送信対象関数
type TargetFunc func(s Session) bool

// TargetAll 全セッションを対象に送信します
func TargetAll() TargetFunc {
	return func(_ Session) bool {
		return true
	}
}

// TargetUsers 指定したユーザーの全セッションを対象に送信します
func TargetUsers(userIDs ...string) TargetFunc {
	users := set.NewOrdered(userIDs...)
	return func(s Session) bool {
		return users.Contains(s.UserID())
	}
}

// TargetConnections 指定したコネクションキーのセッションを対象に送信します
func TargetConnections(keys ...string) TargetFunc {
	conns := set.NewOrdered(keys...)
	return func(s Session) bool {
		return conns.Contains(s.Key())
	}
}

// TargetNone いずれのセッションにも送信しません
func TargetNone() TargetFunc {
	return func(_ Session) bool {
		return false
	}
}

// Or いずれかのTargetFuncの条件に該当する対象に送信します
func Or(funcs ...TargetFunc) TargetFunc {
	return func(s Session) bool {
		for _, f := range funcs {
			if f(s) {
				return true
			}
		}
		return false
	}
}

// And すべてのTargetFuncの条件に該当する対象に送信します
func And(funcs ...TargetFunc) TargetFunc {
	return func(s Session) bool {
		for _, f := range funcs {
			if !f(s) {
				return false
			}
		}
		return true
	}
}

// Not TargetFuncの条件に該当しない対象に送信します
func Not(f TargetFunc) TargetFunc {
	return func(s Session) bool {
		return !f(s)
	}
}
