package call

import "errors"

var (
	// ErrInvalidCallType 不明な通話の種類です
	ErrInvalidCallType = errors.New("invalid call type")
	// ErrSelfCall 自分自身には発信できません
	ErrSelfCall = errors.New("cannot call yourself")
	// ErrUserBusy どちらかの参加者が他の通話中です
	ErrUserBusy = errors.New("user is busy")
	// ErrUserOffline 着信先のユーザーがオフラインです
	ErrUserOffline = errors.New("user is offline")
	// ErrCallNotFound 通話が存在しません
	ErrCallNotFound = errors.New("call not found")
	// ErrNotParticipant 通話の参加者ではありません
	ErrNotParticipant = errors.New("not a participant of the call")
	// ErrInvalidCallState 現在の状態では実行できない操作です
	ErrInvalidCallState = errors.New("invalid call state")
	// ErrInvalidSignal 不明なシグナリングメッセージの種類です
	ErrInvalidSignal = errors.New("invalid signal kind")
)
