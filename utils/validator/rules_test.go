package validator

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNotNilUUID(t *testing.T) {
	t.Parallel()

	id := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))
	tests := []struct {
		name  string
		value interface{}
		ok    bool
	}{
		{"nil", nil, true},
		{"uuid.UUID", id, true},
		{"uuid.NullUUID", uuid.NullUUID{Valid: true, UUID: id}, true},
		{"uuid.NullUUID Valid:false", uuid.NullUUID{}, true},
		{"string", id.String(), true},
		{"[]byte", id.Bytes(), true},
		{"uuid.Nil", uuid.Nil, false},
		{"nil string", uuid.Nil.String(), false},
		{"invalid string", "not-a-uuid", false},
		{"invalid bytes", []byte{1, 2, 3}, false},
		{"int", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NotNilUUID.Validate(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNoSpaceOrControl(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NoSpaceOrControl.Validate("room-1"))
	assert.NoError(t, NoSpaceOrControl.Validate("ルーム"))
	assert.Error(t, NoSpaceOrControl.Validate("room 1"))
	assert.Error(t, NoSpaceOrControl.Validate("room\x00"))
	assert.Error(t, NoSpaceOrControl.Validate("room\n"))
}
