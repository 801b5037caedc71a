package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	key    string
	userID string
}

func (s fakeSession) Key() string    { return s.key }
func (s fakeSession) UserID() string { return s.userID }

func TestTargetFuncs(t *testing.T) {
	t.Parallel()

	a1 := fakeSession{key: "a1", userID: "a"}
	a2 := fakeSession{key: "a2", userID: "a"}
	b1 := fakeSession{key: "b1", userID: "b"}

	tests := []struct {
		name string
		f    TargetFunc
		want []bool
	}{
		{"all", TargetAll(), []bool{true, true, true}},
		{"none", TargetNone(), []bool{false, false, false}},
		{"users", TargetUsers("a"), []bool{true, true, false}},
		{"connections", TargetConnections("a2", "b1"), []bool{false, true, true}},
		{"not", Not(TargetConnections("a1")), []bool{false, true, true}},
		{"and", And(TargetUsers("a"), Not(TargetConnections("a1"))), []bool{false, true, false}},
		{"or", Or(TargetConnections("a1"), TargetUsers("b")), []bool{true, false, true}},
		{"empty users", TargetUsers(), []bool{false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := []bool{tt.f(a1), tt.f(a2), tt.f(b1)}
			assert.Equal(t, tt.want, got)
		})
	}
}
