package validator

import (
	"errors"
	"unicode"

	vd "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofrs/uuid"
)

var (
	errNilUUID     = errors.New("must not be nil uuid")
	errInvalidUUID = errors.New("must be a valid uuid")
)

// NotNilUUID uuid.Nilでないこと
//
// uuid.UUID, uuid.NullUUID, string, []byteを受け付けます。nilはスキップします。
var NotNilUUID = vd.By(func(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return notNil(v)
	case uuid.NullUUID:
		if !v.Valid {
			return nil
		}
		return notNil(v.UUID)
	case string:
		id, err := uuid.FromString(v)
		if err != nil {
			return errInvalidUUID
		}
		return notNil(id)
	case []byte:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return errInvalidUUID
		}
		return notNil(id)
	default:
		return errInvalidUUID
	}
})

func notNil(id uuid.UUID) error {
	if id == uuid.Nil {
		return errNilUUID
	}
	return nil
}

// NoSpaceOrControl 空白文字と制御文字を含まないこと
var NoSpaceOrControl = vd.NewStringRule(func(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}, "must not contain whitespace or control characters")
