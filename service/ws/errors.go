package ws

import (
	"errors"

	vd "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hibiki-social/hibiki/repository"
	"github.com/hibiki-social/hibiki/service/call"
	msgsvc "github.com/hibiki-social/hibiki/service/message"
	"github.com/hibiki-social/hibiki/service/room"
	"github.com/hibiki-social/hibiki/service/signaling"
)

// エラーコード
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

const internalErrorMessage = "internal server error"

var errBadRequest = errors.New("malformed event body")

var (
	validationErrors = []error{
		errBadRequest,
		repository.ErrNilID,
		room.ErrInvalidRoom,
		call.ErrInvalidCallType,
		call.ErrSelfCall,
		call.ErrInvalidSignal,
		msgsvc.ErrChatIDRequired,
		msgsvc.ErrEmptyContent,
		msgsvc.ErrContentTooLong,
		msgsvc.ErrInvalidKind,
	}
	notFoundErrors = []error{
		repository.ErrNotFound,
		call.ErrCallNotFound,
		room.ErrUnknownConnection,
	}
	conflictErrors = []error{
		call.ErrUserBusy,
		call.ErrInvalidCallState,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify エラーを分類し、エラーコードとクライアントに返すメッセージを返します
//
// 分類できないエラーは内部エラーとして扱い、メッセージを隠します。
func classify(err error) (code string, msg string) {
	// signaling.Errorはコンテキストを取り除いたメッセージを返す
	msg = err.Error()
	var se *signaling.Error
	if errors.As(err, &se) {
		msg = se.Err.Error()
	}

	var ve vd.Errors
	switch {
	case errors.As(err, &ve), repository.IsArgError(err), isAny(err, validationErrors):
		return CodeValidation, msg
	case isAny(err, notFoundErrors):
		return CodeNotFound, msg
	case errors.Is(err, call.ErrNotParticipant):
		return CodeUnauthorized, msg
	case isAny(err, conflictErrors):
		return CodeConflict, msg
	case errors.Is(err, call.ErrUserOffline):
		return CodeUnavailable, msg
	default:
		return CodeInternal, internalErrorMessage
	}
}

// errorContext エラーの発生したコンテキストを返します
func errorContext(eventType string, err error) string {
	var se *signaling.Error
	if errors.As(err, &se) {
		return se.Context
	}
	if ctx, ok := eventContexts[eventType]; ok {
		return ctx
	}
	return eventType + "_failed"
}
